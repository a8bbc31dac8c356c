package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tessro/cadence/internal/core"
)

var playWait bool

var playCmd = &cobra.Command{
	Use:   "play <track-id> [track-id...]",
	Short: "Play a track or a list of tracks",
	Long: `Play a track by catalog id. With multiple ids the whole list becomes
the queue, starting at the first track. Playing the track that is already
current toggles pause/resume instead of restarting it.

Examples:
  cadence play 4uLU6hMC          # Play a single track
  cadence play 4uLU6hMC 7ouMYWp  # Play a two-track queue`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVarP(&playWait, "wait", "w", false, "Keep running until playback stops")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tracks := make([]core.Track, 0, len(args))
	for _, id := range args {
		track, err := a.catalog.ResolveTrack(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to resolve track %s: %w", id, err)
		}
		tracks = append(tracks, *track)
	}

	if len(tracks) == 1 {
		err = a.ctrl.PlayTrack(ctx, tracks[0], nil)
	} else {
		err = a.ctrl.PlayCollection(ctx, tracks, 0)
	}
	if err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	// The play intent dispatches as soon as the transport is ready; give
	// that round-trip a moment before reporting.
	a.ctrl.Close()
	snap := a.ctrl.Snapshot()
	if snap.LastError != "" {
		return fmt.Errorf("%s", snap.LastError)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status": "playing",
			"track":  tracks[0].Title,
			"artist": tracks[0].Artist(),
			"queue":  len(tracks),
		})
	} else {
		fmt.Printf("▶ %s - %s\n", tracks[0].Title, tracks[0].Artist())
		if len(tracks) > 1 {
			fmt.Printf("  queued %d tracks\n", len(tracks))
		}
	}

	if playWait {
		waitForPlaybackEnd(ctx, a)
	}

	return nil
}

// waitForPlaybackEnd blocks until the store reports playback stopped.
func waitForPlaybackEnd(ctx context.Context, a *app) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.ctrl.Snapshot().Playing {
				return
			}
		}
	}
}
