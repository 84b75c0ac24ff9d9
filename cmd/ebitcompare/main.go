package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/nicky-ayoub/ebitcompare/internal/config"
	"github.com/nicky-ayoub/ebitcompare/internal/logging"
	"github.com/nicky-ayoub/ebitcompare/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	watchDir   string
	width      int
	height     int
	fullscreen bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ebitcompare <product> [scene...]",
	Short: "Compare a product photo against generated scenes",
	Long: `Shows a generated scene with the product image laid over it, clipped at a
draggable divider. Drag with the mouse or a finger, or focus the slider with
Tab and use the arrow keys.

Scenes come from the arguments and, with --watch, from a directory that is
watched for newly generated images. The newest scene is shown; PageUp and
PageDown or the thumbnail strip pick another.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVarP(&watchDir, "watch", "w", "", "Directory to watch for generated scenes")
	rootCmd.Flags().IntVar(&width, "width", 0, "Window width")
	rootCmd.Flags().IntVar(&height, "height", 0, "Window height")
	rootCmd.Flags().BoolVar(&fullscreen, "fullscreen", false, "Start in fullscreen")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Product = args[0]
	cfg.Scenes = args[1:]

	flags := cmd.Flags()
	if flags.Changed("watch") {
		cfg.Watch.Dir = watchDir
	}
	if flags.Changed("width") {
		cfg.Window.Width = width
	}
	if flags.Changed("height") {
		cfg.Window.Height = height
	}
	if flags.Changed("fullscreen") {
		cfg.Window.Fullscreen = fullscreen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Verbose:     verbose,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !service.IsSupported(cfg.Product) {
		return fmt.Errorf("product %s: %w", cfg.Product, service.ErrUnsupportedFormat)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	game := NewGame(ctx, cfg, logger)
	defer game.Close()

	now := time.Now()
	for _, path := range cfg.Scenes {
		game.AddScenes(service.Scene{Path: path, ModTime: now})
	}
	if cfg.Watch.Dir != "" {
		if err := game.WatchScenes(cfg.Watch.Dir); err != nil {
			return fmt.Errorf("watching %s: %w", cfg.Watch.Dir, err)
		}
		logger.Info("Watching for scenes", zap.String("dir", cfg.Watch.Dir))
	}

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Window.Fullscreen)

	logger.Info("Starting",
		zap.String("product", cfg.Product),
		zap.Int("scenes", len(cfg.Scenes)))

	if err := ebiten.RunGame(game); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
