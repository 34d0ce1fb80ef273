// Package ui implements the host dashboard terminal interface using bubbletea's Elm architecture.
//
// The dashboard shows the party session header, the now-playing track, and
// the combined queue (guest submissions with vote counts, then the upstream
// Spotify queue). It polls the running partyq server over the guest API on a
// fixed interval; the server's read-through caches keep that polling cheap.
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Keyboard bindings cover refresh (r), skip (n), pause/play (p/space), and
// quit (q), with contextual help via charmbracelet/bubbles/help.
package ui
