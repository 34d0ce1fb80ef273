// package formatter provides functions to export the party queue to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// Entry is one queued track with its attribution and vote count.
//
// Guest and Votes are zero-valued for tracks that came from the
// upstream Spotify queue rather than a guest submission.
type Entry struct {
	Guest string       `json:"guest,omitempty"`
	Votes int          `json:"votes"`
	Track models.Track `json:"track"`
}

// QueueExport is a snapshot of a session's queue prepared for export
type QueueExport struct {
	SessionName string  `json:"session_name"`
	SessionCode string  `json:"session_code"`
	Entries     []Entry `json:"entries"`
}

// ExportToCSV converts a QueueExport to CSV format with columns: Position, Title, Artist, Album, Duration, Guest, Votes
func ExportToCSV(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Album", "Duration", "Guest", "Votes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, entry := range export.Entries {
		record := []string{
			strconv.Itoa(i + 1),
			entry.Track.Title,
			entry.Track.Artist,
			entry.Track.Album,
			shared.FormatDuration(entry.Track.DurationMS),
			entry.Guest,
			strconv.Itoa(entry.Votes),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a QueueExport to Markdown format
func ExportToMarkdown(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.SessionName))

	if export.SessionCode != "" {
		buf.WriteString(fmt.Sprintf("**Join code**: %s\n", export.SessionCode))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(export.Entries)))

	buf.WriteString("## Queue\n\n")
	for i, entry := range export.Entries {
		duration := shared.FormatDuration(entry.Track.DurationMS)
		albumPart := ""
		if entry.Track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", entry.Track.Album)
		}
		guestPart := ""
		if entry.Guest != "" {
			guestPart = fmt.Sprintf(" · %s, %d votes", entry.Guest, entry.Votes)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]%s\n", i+1, entry.Track.Artist, entry.Track.Title, albumPart, duration, guestPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a QueueExport to plain text format
func ExportToText(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Party: %s\n", export.SessionName))
	if export.SessionCode != "" {
		buf.WriteString(fmt.Sprintf("Join code: %s\n", export.SessionCode))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Entries)))

	for i, entry := range export.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.Track.Artist, entry.Track.Title))
	}

	return buf.Bytes(), nil
}

// Export renders the queue in the named format: "csv", "markdown"/"md", or "text"/"txt".
func Export(export *QueueExport, format string) ([]byte, error) {
	switch format {
	case "csv":
		return ExportToCSV(export)
	case "markdown", "md":
		return ExportToMarkdown(export)
	case "text", "txt":
		return ExportToText(export)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders the queue in the named format and writes it to path.
//
// The path defaults to queue.{ext} in the working directory.
func WriteExport(export *QueueExport, format, path string) (string, error) {
	data, err := Export(export, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "queue." + extensionFor(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func extensionFor(format string) string {
	switch format {
	case "markdown", "md":
		return "md"
	case "text", "txt":
		return "txt"
	default:
		return format
	}
}
