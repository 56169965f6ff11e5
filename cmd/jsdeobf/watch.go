package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	deobf "github.com/jsdeobf/jsdeobf"
	"github.com/jsdeobf/jsdeobf/decoder"
)

// watchLogger mirrors the teacher's own package-level Bundle.Logger,
// scoped to this command rather than the library.
var watchLogger = log.New(os.Stderr, "[jsdeobf watch] ", 0)

func newWatchCmd() *cobra.Command {
	var (
		decoders     []string
		markKeywords []string
		noSandbox    bool
		timeout      time.Duration
		outDir       string
	)

	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Re-run the pipeline whenever a watched file changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := deobf.DefaultOptions()
			opts.Decoders = decoders
			opts.MarkKeywords = markKeywords
			if noSandbox {
				opts.Sandbox = nil
			} else {
				opts.Sandbox = decoder.NewOttoSandbox(timeout)
			}
			return runWatch(args, outDir, opts)
		},
	}

	cmd.Flags().StringSliceVar(&decoders, "decoders", nil, "decoder function names already known by the caller")
	cmd.Flags().StringSliceVar(&markKeywords, "mark-keywords", nil, "keywords that trigger a TOLOOK comment")
	cmd.Flags().BoolVar(&noSandbox, "no-sandbox", false, "skip locating and evaluating decoder calls")
	cmd.Flags().DurationVar(&timeout, "timeout", decoder.DefaultTimeout, "sandbox evaluation timeout")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write <name>.deobf.js into (default: print to stdout)")

	return cmd
}

// runWatch is the recompiler loop: adapted from the teacher's own
// Bundle.recompiler, rebuilt against the modern fsnotify API (plural
// Events/Errors channels, Add instead of Watch) in place of the archived
// code.google.com/p/go.exp/fsnotify the teacher's go.mod named.
func runWatch(files []string, outDir string, opts deobf.Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, f := range files {
		if err := watcher.Add(f); err != nil {
			return err
		}
	}
	for _, f := range files {
		runOnce(f, outDir, opts)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// A rename or remove drops the inode fsnotify was watching;
			// re-add it once the editor's replacement file lands.
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(10 * time.Millisecond)
				if err := watcher.Add(ev.Name); err != nil {
					watchLogger.Println(err)
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			runOnce(ev.Name, outDir, opts)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			watchLogger.Println(err)
		}
	}
}

func runOnce(file, outDir string, opts deobf.Options) {
	src, err := os.ReadFile(file)
	if err != nil {
		watchLogger.Println(err)
		return
	}
	result, err := deobf.Deobfuscate(file, string(src), opts)
	if err != nil {
		watchLogger.Println(err)
		return
	}
	if outDir == "" {
		fmt.Println(result.Code)
		return
	}
	base := filepath.Base(file)
	out := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".deobf.js")
	if err := os.WriteFile(out, []byte(result.Code), 0o644); err != nil {
		watchLogger.Println(err)
		return
	}
	watchLogger.Printf("update successful (%s -> %s)", file, out)
}
