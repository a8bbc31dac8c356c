package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tessro/cadence/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current playback state",
	Long:  `Shows the current track, position, volume and playback modes.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.ctrl.Snapshot()

	if JSONOutput() {
		return outputStatusJSON(snap)
	}
	return outputStatusText(snap)
}

func outputStatusJSON(snap store.Snapshot) error {
	out := map[string]interface{}{
		"playing":  snap.Playing,
		"volume":   snap.Volume,
		"muted":    snap.Muted,
		"shuffle":  snap.Shuffled,
		"repeat":   snap.Repeat.String(),
		"premium":  snap.PremiumTier,
		"ready":    snap.Ready,
		"position": int(snap.Position.Seconds()),
		"duration": int(snap.Duration.Seconds()),
	}
	if track := snap.Current(); track != nil {
		out["track"] = map[string]interface{}{
			"id":     track.ID,
			"title":  track.Title,
			"artist": track.Artist(),
			"album":  track.Album,
		}
		out["queue_length"] = len(snap.Queue)
		out["queue_index"] = snap.Index
	}
	if snap.LastError != "" {
		out["error"] = snap.LastError
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}

func outputStatusText(snap store.Snapshot) error {
	track := snap.Current()
	if track == nil {
		fmt.Println("No active playback")
		return nil
	}

	icon := "⏸"
	if snap.Playing {
		icon = "▶"
	}
	fmt.Printf("%s %s - %s\n", icon, track.Title, track.Artist())
	if track.Album != "" {
		fmt.Printf("  album:    %s\n", track.Album)
	}
	fmt.Printf("  position: %s / %s\n", formatDuration(snap.Position), formatDuration(snap.Duration))
	fmt.Printf("  queue:    %d of %d\n", snap.Index+1, len(snap.Queue))

	vol := fmt.Sprintf("%d%%", snap.Volume)
	if snap.Muted {
		vol += " (muted)"
	}
	fmt.Printf("  volume:   %s\n", vol)

	modes := ""
	if snap.Shuffled {
		modes += "shuffle "
	}
	modes += "repeat:" + snap.Repeat.String()
	fmt.Printf("  modes:    %s\n", modes)

	if snap.LastError != "" {
		fmt.Printf("  error:    %s\n", snap.LastError)
	}

	return nil
}
