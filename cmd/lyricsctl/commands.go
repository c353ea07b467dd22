package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"songbook-api-go/logcolors"
	"songbook-api-go/lyrics"
	"songbook-api-go/player"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lyricsctl",
		Short:        "Detect, parse and follow SRT, LRC and plain-text lyrics",
		SilenceUsage: true,
	}

	root.AddCommand(newDetectCmd(), newParseCmd(), newActiveCmd(), newPlayCmd())
	return root
}

// readInput reads a file, or stdin when name is "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE|-",
		Short: "Print the detected format of a lyrics file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), lyrics.Detect(content))
			return nil
		},
	}
}

func newParseCmd() *cobra.Command {
	var (
		argFormat string
		argPretty bool
	)

	cmd := &cobra.Command{
		Use:   "parse FILE|-",
		Short: "Parse a lyrics file and print the payload as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := lyrics.ParseFormat(argFormat)
			if err != nil {
				return err
			}
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			payload := lyrics.Parse(content, format)
			if err := payload.Validate(); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if argPretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(payload)
		},
	}

	cmd.Flags().StringVarP(&argFormat, "format", "f", "auto", "input format: auto, srt, lrc or plain")
	cmd.Flags().BoolVarP(&argPretty, "pretty", "p", false, "indent the JSON output")
	return cmd
}

// parseAt reads a position as a Go duration ("12.5s", "1m3s") or as bare
// milliseconds.
func parseAt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
		return ms, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid position %q", raw)
	}
	return int(d.Milliseconds()), nil
}

func newActiveCmd() *cobra.Command {
	var (
		argAt     string
		argFormat string
	)

	cmd := &cobra.Command{
		Use:   "active FILE|-",
		Short: "Print the line showing at a playback position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parseAt(argAt)
			if err != nil {
				return err
			}
			format, err := lyrics.ParseFormat(argFormat)
			if err != nil {
				return err
			}
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			payload := lyrics.Parse(content, format)
			idx := lyrics.ActiveLine(payload, pos)
			if idx < 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "-")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", idx, payload.Lines[idx].Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&argAt, "at", "0", "playback position, e.g. 12.5s or 12500")
	cmd.Flags().StringVarP(&argFormat, "format", "f", "auto", "input format: auto, srt, lrc or plain")
	return cmd
}

func newPlayCmd() *cobra.Command {
	var (
		argRate float64
		argTick time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Follow lyrics files in real time, one after another",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if argRate <= 0 {
				return fmt.Errorf("rate must be positive, got %v", argRate)
			}
			if argTick <= 0 {
				return fmt.Errorf("tick must be positive, got %v", argTick)
			}

			tracks := make([]player.Track, 0, len(args))
			for i, name := range args {
				content, err := readInput(cmd, name)
				if err != nil {
					return err
				}
				payload := lyrics.ParseAuto(content)
				tracks = append(tracks, player.Track{
					ID:     int64(i + 1),
					Title:  filepath.Base(name),
					Lyrics: &payload,
				})
			}

			q := player.NewQueue()
			q.SetTracks(tracks)
			for q.Next() {
				if err := playTrack(cmd, q.Current, argRate, argTick); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&argRate, "rate", 1, "playback speed multiplier")
	cmd.Flags().DurationVar(&argTick, "tick", 50*time.Millisecond, "how often the position is sampled")
	return cmd
}

// playTrack prints each line of t as it becomes active. Untimed lyrics are
// printed at once.
func playTrack(cmd *cobra.Command, t *player.Track, rate float64, tick time.Duration) error {
	out := cmd.OutOrStdout()
	log.Infof("%s Now playing %s", logcolors.LogPlayer, t.Title)
	fmt.Fprintf(out, "== %s ==\n", t.Title)

	if t.Lyrics == nil {
		return nil
	}
	if !t.Lyrics.IsTimed() {
		for _, line := range t.Lyrics.Lines {
			fmt.Fprintln(out, line.Text)
		}
		return nil
	}

	follower := player.NewFollower(*t.Lyrics)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	start := time.Now()

	for {
		pos := int(float64(time.Since(start).Milliseconds()) * rate)
		if idx, changed := follower.Advance(pos); changed && idx >= 0 {
			line, _ := follower.Line()
			startMs, _ := line.Start()
			fmt.Fprintf(out, "[%s] %s\n", formatOffset(startMs), line.Text)
		}
		if follower.Done(pos) {
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

// formatOffset renders milliseconds as mm:ss.cc.
func formatOffset(ms int) string {
	return fmt.Sprintf("%02d:%02d.%02d", ms/60000, ms/1000%60, ms%1000/10)
}
