package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facekit/livematch/internal/catalogue"
	"github.com/facekit/livematch/internal/config"
	"github.com/facekit/livematch/internal/recognizer"
)

// enrollMaxImageSize caps the longer edge of enrollment photos before they
// go to the encoder. Large originals only slow detection down.
const enrollMaxImageSize = 1600

var enrollCmd = &cobra.Command{
	Use:   "enroll <directory>",
	Short: "Enroll identities from a directory of photos",
	Long: `Enroll every photo in a directory as an identity. Each image must contain
exactly one face; the identity label is taken from the file name without
its extension (e.g. alice.jpg enrolls "alice").`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", 4, "Number of images processed in parallel")
	enrollCmd.Flags().Bool("dry-run", false, "Detect faces but do not modify the catalogue")
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func labelFromFilename(name string) string {
	label := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return strings.ReplaceAll(label, "_", " ")
}

// enrollOne reads, downscales and registers a single photo, then stores the
// returned descriptor under the file-derived label.
func enrollOne(ctx context.Context, cfg *config.Config, encoder *recognizer.Client, store catalogue.Store, path string, dryRun bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if resized, err := recognizer.DownscaleImage(data, enrollMaxImageSize); err == nil {
		data = resized
	}

	label := labelFromFilename(path)
	regCtx, cancel := context.WithTimeout(ctx, cfg.Encoder.Timeout)
	defer cancel()

	enrollment, err := encoder.Register(regCtx, data, label)
	if err != nil {
		return fmt.Errorf("registering %s: %w", label, err)
	}

	if dryRun {
		return nil
	}
	if _, err := store.Enroll(ctx, label, enrollment.Descriptor, catalogue.Metadata{
		Confidence: enrollment.Confidence,
		Quality:    enrollment.Quality,
	}); err != nil {
		return fmt.Errorf("enrolling %s: %w", label, err)
	}
	return nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	concurrency := mustGetInt(cmd, "concurrency")
	dryRun := mustGetBool(cmd, "dry-run")

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}

	var images []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			images = append(images, filepath.Join(args[0], entry.Name()))
		}
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	encoder := recognizer.NewClient(cfg.Encoder.URL)
	if err := encoder.Healthy(ctx); err != nil {
		return fmt.Errorf("encoder sidecar not reachable at %s: %w", cfg.Encoder.URL, err)
	}

	store, closeStore, err := openCatalogue(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	// Create progress bar
	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Enrolling identities"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount int
	var failures []string
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range images {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := enrollOne(ctx, cfg, encoder, store, path, dryRun)

			mu.Lock()
			if err != nil {
				failures = append(failures, err.Error())
			} else {
				successCount++
			}
			mu.Unlock()
			_ = bar.Add(1)
		}(path)
	}
	wg.Wait()
	fmt.Println()

	fmt.Printf("Enrolled %d of %d identities\n", successCount, len(images))
	for _, failure := range failures {
		fmt.Printf("  failed: %s\n", failure)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d enrollment(s) failed", len(failures))
	}
	return nil
}
