package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"fygallery/internal/config"
	"fygallery/internal/gallery"
	"fygallery/internal/intake"
	"fygallery/internal/logger"
	"fygallery/internal/service"
	"fygallery/internal/transfer"
)

// OpenFunc opens the gallery service for one command. dataDir and backend
// override the configuration when non-empty.
type OpenFunc func(ctx context.Context, dataDir, backend string) (*service.Service, error)

type runFunc func(cmd *cobra.Command, args []string, svc *service.Service) error

// NewRootCmd creates the root command for the CLI application. open is
// called once per command so tests can point it at a temporary gallery.
func NewRootCmd(open OpenFunc) *cobra.Command {
	var dbPath, backend string

	rootCmd := &cobra.Command{
		Use:           "fygallery-cli",
		Short:         "fygallery CLI - manage the photo gallery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "Gallery data directory")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Storage backend (bolt, sqlite or blob)")

	// withService opens the gallery, runs fn and always flushes and closes,
	// so a failed command never leaves the database locked.
	withService := func(fn runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, err := open(ctx, dbPath, backend)
			if err != nil {
				return fmt.Errorf("failed to open gallery: %w", err)
			}
			runErr := fn(cmd, args, svc)
			return errors.Join(runErr, svc.Close(ctx))
		}
	}

	rootCmd.AddCommand(
		newAddCmd(withService),
		newListCmd(withService),
		newTagsCmd(withService),
		newTagCmd(withService),
		newUntagCmd(withService),
		newFavCmd(withService),
		newEditCmd(withService),
		newMoveCmd(withService, "up"),
		newMoveCmd(withService, "down"),
		newRemoveCmd(withService),
		newNewCmd(withService),
		newTitleCmd(withService),
		newExportCmd(withService),
		newImportCmd(withService),
		newPrefsCmd(withService),
		newInfoCmd(),
	)
	return rootCmd
}

type wrapper func(runFunc) func(*cobra.Command, []string) error

// newInfoCmd shows the camera metadata of image files without touching the
// gallery.
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]...",
		Short: "Show the EXIF data of image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					errs = append(errs, fmt.Errorf("failed to open %s: %w", path, err))
					continue
				}
				fields := intake.ReadEXIF(f)
				f.Close()

				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", path)
				if len(fields) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "  (no EXIF data)")
					continue
				}
				for _, k := range slices.Sorted(maps.Keys(fields)) {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", k, fields[k])
				}
			}
			return errors.Join(errs...)
		},
	}
}

func newAddCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "add [file|dir]...",
		Short: "Add photos from files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			added, err := svc.AddFiles(cmd.Context(), args...)
			for _, it := range added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", it.ID, it.Title)
			}
			if len(added) == 0 && err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No images found.")
			}
			return err
		}),
	}
}

func newListCmd(with wrapper) *cobra.Command {
	var f gallery.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items in display order",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			items := svc.Search(f)
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No items.")
				return nil
			}
			for _, it := range items {
				printItem(cmd, it)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&f.Tag, "tag", "", "Only items with this tag")
	cmd.Flags().BoolVar(&f.FavOnly, "fav", false, "Only favorites")
	cmd.Flags().StringVar(&f.Query, "search", "", "Match title, description or tags")
	return cmd
}

func printItem(cmd *cobra.Command, it gallery.Item) {
	star := " "
	if it.Fav {
		star = "*"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %4d  %s", star, it.ID, it.Order, it.Title)
	if len(it.Tags) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s]", strings.Join(it.Tags, ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout())
}

func newTagsCmd(with wrapper) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "List all tags with item counts",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			tags := svc.Store.Tags()
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags.")
				return nil
			}
			for _, t := range tags {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", t.Name, t.Count)
			}
			return nil
		}),
	}

	renameCmd := &cobra.Command{
		Use:   "rename [old] [new]",
		Short: "Replace a tag on every item",
		Args:  cobra.ExactArgs(2),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			n, err := svc.ReplaceTag(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed tag '%s' to '%s' on %d items.\n", args[0], args[1], n)
			return nil
		}),
	}
	deleteCmd := &cobra.Command{
		Use:   "remove [tag]",
		Short: "Remove a tag from every item",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			n, err := svc.RemoveTagGlobally(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed tag '%s' from %d items.\n", args[0], n)
			return nil
		}),
	}
	tagsCmd.AddCommand(renameCmd, deleteCmd)
	return tagsCmd
}

func newTagCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "tag [id] [tag]...",
		Short: "Add tags to an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			id, err := resolveID(svc, args[0])
			if err != nil {
				return err
			}
			it, err := svc.AddTagsToItem(id, gallery.ParseTags(strings.Join(args[1:], ",")))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tags for %s: %s\n", it.ID, strings.Join(it.Tags, ", "))
			return nil
		}),
	}
}

func newUntagCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "untag [id] [tag]...",
		Short: "Remove tags from an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			id, err := resolveID(svc, args[0])
			if err != nil {
				return err
			}
			it, err := svc.RemoveTagsFromItem(id, gallery.ParseTags(strings.Join(args[1:], ",")))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tags for %s: %s\n", it.ID, strings.Join(it.Tags, ", "))
			return nil
		}),
	}
}

func newFavCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "fav [id]",
		Short: "Toggle the favorite flag of an item",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			id, err := resolveID(svc, args[0])
			if err != nil {
				return err
			}
			fav, err := svc.Store.ToggleFav(id)
			if err != nil {
				return err
			}
			state := "off"
			if fav {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Favorite %s: %s\n", id, state)
			return nil
		}),
	}
}

func newEditCmd(with wrapper) *cobra.Command {
	var title, desc string
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change the title or description of an item",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			var tp, dp *string
			if cmd.Flags().Changed("title") {
				tp = &title
			}
			if cmd.Flags().Changed("desc") {
				dp = &desc
			}
			if tp == nil && dp == nil {
				return errors.New("nothing to change: use --title or --desc")
			}
			id, err := resolveID(svc, args[0])
			if err != nil {
				return err
			}
			it, err := svc.EditItem(id, tp, dp)
			if err != nil {
				return err
			}
			printItem(cmd, it)
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	return cmd
}

func newMoveCmd(with wrapper, dir string) *cobra.Command {
	return &cobra.Command{
		Use:   dir + " [id]",
		Short: "Move an item " + dir + " one position",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			id, err := resolveID(svc, args[0])
			if err != nil {
				return err
			}
			move := svc.Store.MoveDown
			if dir == "up" {
				move = svc.Store.MoveUp
			}
			if err := move(id); err != nil {
				return err
			}
			it, _ := svc.Store.Get(id)
			printItem(cmd, it)
			return nil
		}),
	}
}

func newRemoveCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]...",
		Short: "Remove items from the gallery",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			ids := make([]string, 0, len(args))
			for _, a := range args {
				id, err := resolveID(svc, a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items.\n", svc.Store.Remove(ids...))
			return nil
		}),
	}
}

func newNewCmd(with wrapper) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new, empty gallery",
		Long: `Remove every item and clear the gallery title and session.
WARNING: there is no undo. Export the gallery first if you want to keep it.`,
		Args: cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			n := svc.Store.Len()
			if !force && n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "[DRY RUN] %d items would be removed. Use --force to start a new gallery.\n", n)
				return nil
			}
			svc.Store.Reset()
			fmt.Fprintf(cmd.OutOrStdout(), "Started a new gallery (%d items removed).\n", n)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove the items without a dry run")
	return cmd
}

func newTitleCmd(with wrapper) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "title [text]",
		Short: "Show or set the gallery title",
		Args:  cobra.MaximumNArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			meta := svc.Store.Meta()
			if len(args) == 0 && !cmd.Flags().Changed("session") {
				fmt.Fprintf(cmd.OutOrStdout(), "Title: %s\nSession: %s\n", meta.Title, meta.Session)
				return nil
			}
			if len(args) == 1 {
				meta.Title = args[0]
			}
			if cmd.Flags().Changed("session") {
				meta.Session = session
			}
			svc.Store.SetMeta(meta)
			fmt.Fprintf(cmd.OutOrStdout(), "Title: %s\nSession: %s\n", meta.Title, meta.Session)
			return nil
		}),
	}
	cmd.Flags().StringVar(&session, "session", "", "Session name used for export file names")
	return cmd
}

func newExportCmd(with wrapper) *cobra.Command {
	var selected []string
	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Export the gallery as JSON",
		Long:  "Export the gallery, or only the items given with --selected, into dir. Large galleries are split into numbered parts.",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			selectedOnly := len(selected) > 0
			if selectedOnly {
				svc.Store.ClearSelection()
				for _, s := range selected {
					id, err := resolveID(svc, s)
					if err != nil {
						return err
					}
					svc.Store.Select(id)
				}
			}
			paths, err := svc.Export(args[0], selectedOnly)
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
			}
			return err
		}),
	}
	cmd.Flags().StringSliceVar(&selected, "selected", nil, "Comma-separated item ids to export")
	return cmd
}

func newImportCmd(with wrapper) *cobra.Command {
	var appendFlag bool
	cmd := &cobra.Command{
		Use:   "import [file]...",
		Short: "Import exported JSON files",
		Long:  "Import one or more exported files. Without --append the first file replaces the gallery; the others are always appended.",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			mode := transfer.Replace
			if appendFlag {
				mode = transfer.Append
			}
			n, err := svc.ImportFiles(cmd.Context(), mode, args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items (%s).\n", n, mode)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&appendFlag, "append", false, "Add to the gallery instead of replacing it")
	return cmd
}

func newPrefsCmd(with wrapper) *cobra.Command {
	var p gallery.Preferences
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, args []string, svc *service.Service) error {
			cur := svc.Store.Prefs()
			flags := cmd.Flags()
			changed := false
			for _, name := range []string{"labels", "card-min", "fav-filter", "slideshow", "slide-ms"} {
				changed = changed || flags.Changed(name)
			}
			if flags.Changed("labels") {
				cur.Labels = p.Labels
			}
			if flags.Changed("card-min") {
				cur.CardMin = p.CardMin
			}
			if flags.Changed("fav-filter") {
				cur.FavFilter = p.FavFilter
			}
			if flags.Changed("slideshow") {
				cur.Slideshow = p.Slideshow
			}
			if flags.Changed("slide-ms") {
				cur.SlideMs = p.SlideMs
			}
			if changed {
				var err error
				if cur, err = svc.Store.SetPrefs(cmd.Context(), cur); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "labels: %s\n", cur.Labels)
			fmt.Fprintf(out, "card-min: %d\n", cur.CardMin)
			fmt.Fprintf(out, "fav-filter: %t\n", cur.FavFilter)
			fmt.Fprintf(out, "slideshow: %t\n", cur.Slideshow)
			fmt.Fprintf(out, "slide-ms: %d\n", cur.SlideMs)
			return nil
		}),
	}
	cmd.Flags().StringVar(&p.Labels, "labels", "", "Card labels: auto, on or off")
	cmd.Flags().IntVar(&p.CardMin, "card-min", 0, "Minimum card width")
	cmd.Flags().BoolVar(&p.FavFilter, "fav-filter", false, "Show the favorites-only toggle")
	cmd.Flags().BoolVar(&p.Slideshow, "slideshow", false, "Advance the viewer automatically")
	cmd.Flags().IntVar(&p.SlideMs, "slide-ms", 0, "Slideshow interval in milliseconds")
	return cmd
}

// resolveID accepts a full item id or a unique prefix of one.
func resolveID(svc *service.Service, arg string) (string, error) {
	if arg == "" {
		return "", errors.New("item id required")
	}
	if _, ok := svc.Store.Get(arg); ok {
		return arg, nil
	}
	var match string
	for _, it := range svc.Store.Items() {
		if strings.HasPrefix(it.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", arg)
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no item with id %q", arg)
	}
	return match, nil
}

// openService loads the configuration and opens the gallery it names.
func openService(ctx context.Context, dataDir, backend string) (*service.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if backend != "" {
		cfg.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}).With("app", "fygallery-cli")
	return service.Open(ctx, cfg, log)
}

func main() {
	rootCmd := NewRootCmd(openService)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
