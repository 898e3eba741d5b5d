package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/application/handlers"
	"github.com/ersonp/clinote/internal/domain/services"
)

// settleDelay is how long a note must stay unchanged before it is annotated.
const settleDelay = 500 * time.Millisecond

type watchFlags struct {
	mode          string
	allowFallback bool
	existing      bool
}

func newWatchCmd() *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Annotate and save notes dropped into a directory",
		Long:  "Watches a directory and annotates every new or changed .txt note, saving the result. Stop with Ctrl+C.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "patterns", "Recognition mode (patterns, model)")
	cmd.Flags().BoolVar(&flags.allowFallback, "allow-fallback", false, "Fall back to patterns when the model is unavailable")
	cmd.Flags().BoolVar(&flags.existing, "existing", false, "Annotate notes already in the directory first")

	return cmd
}

func runWatch(cmd *cobra.Command, dir string, flags watchFlags) error {
	mode, err := parseMode(flags.mode)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	ctx := cmd.Context()

	return withDeps(ctx, depsOptions{allowFallback: flags.allowFallback}, func(deps *Deps) error {
		nw := newNoteWatcher(deps.AnnotateHandler, services.AnnotateOptions{
			Mode:            mode,
			SNOMEDThreshold: deps.Config.Mapping.SNOMEDThreshold,
			HL7Threshold:    deps.Config.Mapping.HL7Threshold,
		}, deps.Logger, os.Stdout)

		if flags.existing {
			if err := nw.processExisting(ctx, dir); err != nil {
				return err
			}
		}

		return nw.watch(ctx, dir)
	})
}

type noteStamp struct {
	size    int64
	modTime time.Time
}

// noteWatcher annotates notes as they appear. Each file version is
// annotated at most once.
type noteWatcher struct {
	handler *handlers.AnnotateHandler
	opts    services.AnnotateOptions
	logger  *zap.Logger
	out     io.Writer
	seen    map[string]noteStamp
}

func newNoteWatcher(handler *handlers.AnnotateHandler, opts services.AnnotateOptions, logger *zap.Logger, out io.Writer) *noteWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &noteWatcher{
		handler: handler,
		opts:    opts,
		logger:  logger,
		out:     out,
		seen:    make(map[string]noteStamp),
	}
}

// isNoteEvent reports whether event creates or changes a visible .txt file.
func isNoteEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return isNoteFile(event.Name)
}

func isNoteFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

func (nw *noteWatcher) processExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !e.IsDir() && isNoteFile(e.Name()) {
			nw.process(ctx, filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

func (nw *noteWatcher) watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	fmt.Fprintf(nw.out, "Watching %s for .txt notes. Press Ctrl+C to stop.\n", dir)

	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isNoteEvent(event) {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			nw.logger.Warn("watcher error", zap.Error(err))
		case now := <-ticker.C:
			for path, changed := range pending {
				if now.Sub(changed) >= settleDelay {
					delete(pending, path)
					nw.process(ctx, path)
				}
			}
		}
	}
}

// process annotates and saves one note. Failures are reported and the
// watcher carries on.
func (nw *noteWatcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	stamp := noteStamp{size: info.Size(), modTime: info.ModTime()}
	if nw.seen[path] == stamp {
		return
	}
	nw.seen[path] = stamp

	data, err := readLimited(path)
	if err != nil {
		fmt.Fprintf(nw.out, "%s: %v\n", filepath.Base(path), err)
		return
	}
	if len(data) > MaxInputBytes {
		fmt.Fprintf(nw.out, "%s: input exceeds %d bytes\n", filepath.Base(path), MaxInputBytes)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result, err := nw.handler.Handle(ctx, text, handlers.AnnotateRequest{
		Options: nw.opts,
		Save:    true,
		Title:   title,
	})
	if err != nil {
		fmt.Fprintf(nw.out, "%s: %v\n", filepath.Base(path), err)
		return
	}
	if result.PipelineErr != nil {
		nw.logger.Warn("annotation incomplete", zap.String("file", path), zap.Error(result.PipelineErr))
	}
	if result.SaveErr != nil {
		fmt.Fprintf(nw.out, "%s: annotated but not saved: %v\n", filepath.Base(path), result.SaveErr)
		return
	}

	summary := result.Result.Summary
	fmt.Fprintf(nw.out, "%s: %d entities, %.1f%% coverage, saved as %s\n",
		filepath.Base(path), summary.TotalEntities, summary.OverallCoverage*100, result.Annotation.ID)
}
