package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectlend/lend/internal/api"
	"github.com/projectlend/lend/internal/arm"
	"github.com/projectlend/lend/internal/camera"
	"github.com/projectlend/lend/internal/database"
	"github.com/projectlend/lend/internal/outreach"
	"github.com/projectlend/lend/internal/pipeline"
	"github.com/projectlend/lend/internal/storage"
	"github.com/projectlend/lend/internal/vision"
)

var rootCmd = &cobra.Command{
	Use:   "lend",
	Short: "lend - donation sorting robot",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: camera, classifier, arm, and dashboard",
	RunE:  runPipeline,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over an existing donation log, no hardware",
	RunE:  runServe,
}

var armTestCmd = &cobra.Command{
	Use:   "arm-test",
	Short: "Cycle the arm through its poses for calibration checks",
	RunE:  runArmTest,
}

var (
	cameraDevice    string
	noArm           bool
	armPort         string
	httpPort        string
	dbPath          string
	imagesDir       string
	warmupFrames    int
	motionThreshold int
	motionMinArea   int
	settleTime      time.Duration
	cooldown        time.Duration
)

func init() {
	runCmd.Flags().StringVar(&cameraDevice, "camera", "/dev/video0", "Capture device")
	runCmd.Flags().BoolVar(&noArm, "no-arm", false, "Vision-only mode: classify and log, never actuate")
	runCmd.Flags().StringVar(&armPort, "arm-port", "/dev/ttyUSB0", "Serial port of the arm controller")
	runCmd.Flags().IntVar(&warmupFrames, "warmup-frames", 60, "Frames to discard while the camera auto-exposes")
	runCmd.Flags().IntVar(&motionThreshold, "motion-threshold", 30, "Pixel intensity change that counts as motion")
	runCmd.Flags().IntVar(&motionMinArea, "min-area", 5000, "Minimum changed area (px) that counts as an item")
	runCmd.Flags().DurationVar(&settleTime, "settle", 1500*time.Millisecond, "Quiet time before an item counts as settled")
	runCmd.Flags().DurationVar(&cooldown, "cooldown", 5*time.Second, "Pause after a sort before watching again")

	for _, cmd := range []*cobra.Command{runCmd, serveCmd} {
		cmd.Flags().StringVar(&httpPort, "port", envOr("PORT", "8080"), "Dashboard listen port")
		cmd.Flags().StringVar(&dbPath, "db", envOr("DB_PATH", "./donations.db"), "SQLite donation log path")
		cmd.Flags().StringVar(&imagesDir, "images", "./images", "Directory for captured donation images")
	}
	armTestCmd.Flags().StringVar(&armPort, "arm-port", "/dev/ttyUSB0", "Serial port of the arm controller")

	rootCmd.AddCommand(runCmd, serveCmd, armTestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runPipeline(cmd *cobra.Command, args []string) error {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	images, err := storage.NewLocalStorage(imagesDir)
	if err != nil {
		return fmt.Errorf("init image storage: %w", err)
	}

	source, err := camera.Start(ctx, camera.Config{Device: cameraDevice})
	if err != nil {
		return fmt.Errorf("start camera: %w", err)
	}
	defer source.Stop()

	var sorter *pipeline.SortQueue
	if !noArm {
		controller, err := arm.Open(armPort)
		if err != nil {
			return fmt.Errorf("open arm on %s: %w", armPort, err)
		}
		defer controller.Close()
		sorter = pipeline.NewSortQueue(controller.SortToBin)
		defer sorter.Close()
	} else {
		log.Printf("Arm disabled, running vision-only")
	}

	cfg := pipeline.DefaultConfig()
	cfg.WarmupFrames = warmupFrames
	cfg.MotionThreshold = uint8(motionThreshold)
	cfg.MotionMinArea = motionMinArea
	cfg.SettleTime = settleTime
	cfg.Cooldown = cooldown
	cfg.UseArm = !noArm

	repo := database.NewDonationRepository(db)
	status := pipeline.NewStatusPublisher()
	classifier := vision.NewClient(apiKey)
	machine := pipeline.NewMachine(cfg, classifier, sorter, repo, images, status)

	go machine.Run(ctx, source)

	app := &api.App{
		Donations:  repo,
		Shelters:   database.NewShelterRepository(db),
		Status:     status,
		Frames:     source,
		Images:     images,
		Classifier: classifier,
		Outreach:   outreach.NewMailer(outreach.ConfigFromEnv()),
	}
	return serveHTTP(ctx, api.NewRouter(app))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	images, err := storage.NewLocalStorage(imagesDir)
	if err != nil {
		return fmt.Errorf("init image storage: %w", err)
	}

	app := &api.App{
		Donations: database.NewDonationRepository(db),
		Shelters:  database.NewShelterRepository(db),
		Status:    pipeline.NewStatusPublisher(),
		Images:    images,
		Outreach:  outreach.NewMailer(outreach.ConfigFromEnv()),
	}
	return serveHTTP(ctx, api.NewRouter(app))
}

func serveHTTP(ctx context.Context, handler http.Handler) error {
	server := &http.Server{
		Addr:    ":" + httpPort,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard listening on port %s", httpPort)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func runArmTest(cmd *cobra.Command, args []string) error {
	controller, err := arm.Open(armPort)
	if err != nil {
		return fmt.Errorf("open arm on %s: %w", armPort, err)
	}
	defer controller.Close()

	steps := []struct {
		name string
		pose arm.Pose
	}{
		{"home", arm.Home},
		{"pickup", arm.Pickup},
		{"fruit bin", arm.BinFruit},
		{"snack bin", arm.BinSnack},
		{"drink bin", arm.BinDrink},
		{"home", arm.Home},
	}

	for _, step := range steps {
		fmt.Printf("Moving to %s...\n", step.name)
		if err := controller.MoveToPose(step.pose); err != nil {
			return fmt.Errorf("move to %s: %w", step.name, err)
		}
	}
	fmt.Println("Arm test complete")
	return nil
}
