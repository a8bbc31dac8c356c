package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tessro/cadence/internal/core"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Long:  `Pause the current playback.`,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume playback",
	Long:  `Resume paused playback without restarting the track.`,
	RunE:  runResume,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track",
	Long:  `Skip to the next track per the repeat mode.`,
	RunE:  runNext,
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track",
	Long: `Go back one track, or restart the current track when more than a
few seconds in.`,
	RunE: runPrev,
}

var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek within the current track",
	Long:  `Seek to a position (in seconds) within the current track.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSeek,
}

var (
	volumeUp   bool
	volumeDown bool
)

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Set or adjust volume",
	Long: `Set the playback volume (0-100) or adjust it up/down.

Examples:
  cadence volume 50      # Set volume to 50%
  cadence volume --up    # Increase volume by 10%
  cadence volume --down  # Decrease volume by 10%`,
	RunE: runVolume,
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Toggle mute",
	Long:  `Toggle mute. Unmuting restores the pre-mute volume exactly.`,
	RunE:  runMute,
}

var shuffleCmd = &cobra.Command{
	Use:   "shuffle",
	Short: "Toggle shuffle",
	RunE:  runShuffle,
}

var repeatCmd = &cobra.Command{
	Use:   "repeat [off|track|context]",
	Short: "Set or cycle the repeat mode",
	Long: `Set the repeat mode, or cycle off -> track -> context -> off when no
mode is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepeat,
}

func init() {
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "Increase volume by 10%")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "Decrease volume by 10%")

	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(repeatCmd)
}

func runPause(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "paused"})
	} else {
		fmt.Println("⏸ Paused")
	}

	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "playing"})
	} else {
		fmt.Println("▶ Resumed")
	}

	return nil
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.Next(ctx); err != nil {
		return fmt.Errorf("failed to skip: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "skipped"})
	} else {
		fmt.Println("⏭ Skipped to next track")
	}

	return nil
}

func runPrev(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.Previous(ctx); err != nil {
		return fmt.Errorf("failed to go back: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "previous"})
	} else {
		fmt.Println("⏮ Previous track")
	}

	return nil
}

func runSeek(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	seconds, err := strconv.Atoi(args[0])
	if err != nil || seconds < 0 {
		return fmt.Errorf("invalid position: %s", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.Seek(ctx, time.Duration(seconds)*time.Second); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	position := a.ctrl.Snapshot().Position
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status":   "seeked",
			"position": int(position.Seconds()),
		})
	} else {
		fmt.Printf("⏩ Seeked to %s\n", formatDuration(position))
	}

	return nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	current := a.ctrl.Snapshot().Volume

	// No args and no flags just shows the current volume.
	if !volumeUp && !volumeDown && len(args) == 0 {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]int{"volume": current})
		} else {
			fmt.Printf("🔊 Volume: %d%%\n", current)
		}
		return nil
	}

	target := current
	switch {
	case volumeUp:
		target = current + 10
	case volumeDown:
		target = current - 10
	default:
		val, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid volume level: %s", args[0])
		}
		if val < 0 || val > 100 {
			return fmt.Errorf("volume must be between 0 and 100")
		}
		target = val
	}

	if err := a.ctrl.SetVolume(ctx, target); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	applied := a.ctrl.Snapshot().Volume
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]int{
			"volume":   applied,
			"previous": current,
		})
	} else {
		fmt.Printf("🔊 Volume: %d%% (was %d%%)\n", applied, current)
	}

	return nil
}

func runMute(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.ToggleMute(ctx); err != nil {
		return fmt.Errorf("failed to toggle mute: %w", err)
	}

	snap := a.ctrl.Snapshot()
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]bool{"muted": snap.Muted})
	} else if snap.Muted {
		fmt.Println("🔇 Muted")
	} else {
		fmt.Printf("🔊 Unmuted (volume %d%%)\n", snap.Volume)
	}

	return nil
}

func runShuffle(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.ctrl.ToggleShuffle()

	snap := a.ctrl.Snapshot()
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]bool{"shuffle": snap.Shuffled})
	} else if snap.Shuffled {
		fmt.Println("🔀 Shuffle on")
	} else {
		fmt.Println("➡ Shuffle off")
	}

	return nil
}

func runRepeat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		a.ctrl.SetRepeat(core.ParseRepeatMode(args[0]))
	} else {
		a.ctrl.CycleRepeat()
	}

	mode := a.ctrl.Snapshot().Repeat
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"repeat": mode.String()})
	} else {
		fmt.Printf("🔁 Repeat: %s\n", mode)
	}

	return nil
}
