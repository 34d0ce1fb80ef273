package formatter

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

func sampleExport() *QueueExport {
	return &QueueExport{
		SessionName: "Living Room",
		SessionCode: "ABC123",
		Entries: []Entry{
			{
				Guest: "sam",
				Votes: 3,
				Track: models.Track{
					ID:         "t1",
					Title:      "First Song",
					Artist:     "Artist One",
					Album:      "Album One",
					DurationMS: 215000,
					URI:        "spotify:track:t1",
				},
			},
			{
				Track: models.Track{
					ID:         "t2",
					Title:      "Second Song",
					Artist:     "Artist Two",
					DurationMS: 187000,
					URI:        "spotify:track:t2",
				},
			},
		},
	}
}

func TestExportToCSV(t *testing.T) {
	t.Run("writes headers and one record per entry", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("expected valid CSV, got %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected header plus 2 records, got %d rows", len(records))
		}

		headers := records[0]
		want := []string{"Position", "Title", "Artist", "Album", "Duration", "Guest", "Votes"}
		for i, h := range want {
			if headers[i] != h {
				t.Errorf("expected header %q at %d, got %q", h, i, headers[i])
			}
		}

		first := records[1]
		if first[0] != "1" || first[1] != "First Song" || first[4] != "3:35" || first[5] != "sam" || first[6] != "3" {
			t.Errorf("unexpected first record: %v", first)
		}
	})

	t.Run("handles an empty queue", func(t *testing.T) {
		data, err := ExportToCSV(&QueueExport{SessionName: "Empty"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("expected valid CSV, got %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected only the header row, got %d rows", len(records))
		}
	})
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown(sampleExport())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := string(data)

	t.Run("includes the session header", func(t *testing.T) {
		if !strings.Contains(out, "# Living Room") {
			t.Errorf("expected session name heading, got %q", out)
		}
		if !strings.Contains(out, "**Join code**: ABC123") {
			t.Errorf("expected join code, got %q", out)
		}
		if !strings.Contains(out, "**Tracks**: 2") {
			t.Errorf("expected track count, got %q", out)
		}
	})

	t.Run("lists entries with duration and attribution", func(t *testing.T) {
		if !strings.Contains(out, "1. Artist One - First Song (Album One) [3:35] · sam, 3 votes") {
			t.Errorf("expected attributed entry, got %q", out)
		}
		if !strings.Contains(out, "2. Artist Two - Second Song [3:07]") {
			t.Errorf("expected upstream entry without attribution, got %q", out)
		}
		if strings.Contains(out, "Second Song (") {
			t.Error("expected no album parenthetical for a track without an album")
		}
	})

	t.Run("omits the join code when empty", func(t *testing.T) {
		export := sampleExport()
		export.SessionCode = ""

		data, err := ExportToMarkdown(export)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(string(data), "Join code") {
			t.Error("expected no join code line")
		}
	})
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText(sampleExport())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := string(data)

	if !strings.Contains(out, "Party: Living Room") {
		t.Errorf("expected party line, got %q", out)
	}
	if !strings.Contains(out, "Join code: ABC123") {
		t.Errorf("expected join code line, got %q", out)
	}
	if !strings.Contains(out, "1. Artist One - First Song") {
		t.Errorf("expected numbered entry, got %q", out)
	}
}

func TestExport(t *testing.T) {
	export := sampleExport()

	t.Run("dispatches by format name", func(t *testing.T) {
		for _, format := range []string{"csv", "markdown", "md", "text", "txt"} {
			data, err := Export(export, format)
			if err != nil {
				t.Errorf("format %s: expected no error, got %v", format, err)
			}
			if len(data) == 0 {
				t.Errorf("format %s: expected output", format)
			}
		}
	})

	t.Run("rejects an unknown format", func(t *testing.T) {
		_, err := Export(export, "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("writes to the given path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "party.csv")

		got, err := WriteExport(sampleExport(), "csv", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != path {
			t.Errorf("expected path %s, got %s", path, got)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.Contains(string(data), "First Song") {
			t.Errorf("expected track in export, got %q", data)
		}
	})

	t.Run("defaults the filename from the format", func(t *testing.T) {
		dir := t.TempDir()
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("failed to get working directory: %v", err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("failed to change directory: %v", err)
		}
		t.Cleanup(func() { os.Chdir(cwd) })

		got, err := WriteExport(sampleExport(), "markdown", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "queue.md" {
			t.Errorf("expected queue.md, got %s", got)
		}
	})

	t.Run("propagates format errors without writing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "party.xml")

		if _, err := WriteExport(sampleExport(), "xml", path); err == nil {
			t.Error("expected error for unknown format")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected no file to be written")
		}
	})
}
