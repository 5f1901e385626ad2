package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"pagematch/internal/acquire"
	"pagematch/internal/capture"
	"pagematch/internal/compare"
	"pagematch/internal/report"
	"pagematch/internal/retry"
	"pagematch/internal/storage"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type WorkerOutput struct {
	report.Report
	ReferenceSource string `json:"referenceSource"`
	CandidateURL    string `json:"candidateURL"`
}

type Worker struct {
	Capturer capture.Capturer
	Storage  storage.Storage
	Policy   compare.Policy
	Options  capture.Options
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case int64:
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return any(intValue).(T)
		}
	case uint:
		if uintValue, err := strconv.ParseUint(value, 10, 0); err == nil {
			return any(uint(uintValue)).(T)
		}
	case uint64:
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return any(uintValue).(T)
		}
	case float64:
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return any(floatValue).(T)
		}
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

func main() {
	_ = godotenv.Load()

	var screenshotFormat string
	var chromeDevtoolsProtocolURL string
	var maskSelectors string
	var storageBackend string
	var callbackURL string
	var schedule string
	var ignoreAntialiasing bool
	var ignoreColors bool
	var scaleToSameSize bool
	var diffMode string
	var threshold float64
	flag.StringVar(&screenshotFormat, "screenshot-format", envOrDefaultValue("SCREENSHOT_FORMAT", "png"), "Screenshot format (jpeg or png)")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", envOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.StringVar(&maskSelectors, "mask-selectors", envOrDefaultValue("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&callbackURL, "callback-url", envOrDefaultValue("CALLBACK_URL", ""), "Callback URL to send results to")
	flag.StringVar(&schedule, "schedule", envOrDefaultValue("SCHEDULE", ""), "Cron expression for repeated runs (empty runs once)")
	flag.BoolVar(&ignoreAntialiasing, "ignore-antialiasing", envOrDefaultValue("IGNORE_ANTIALIASING", false), "Discount divergence consistent with anti-aliased edges")
	flag.BoolVar(&ignoreColors, "ignore-colors", envOrDefaultValue("IGNORE_COLORS", false), "Compare brightness only")
	flag.BoolVar(&scaleToSameSize, "scale-to-same-size", envOrDefaultValue("SCALE_TO_SAME_SIZE", true), "Resample unequal inputs to a common size instead of failing")
	flag.StringVar(&diffMode, "diff-mode", envOrDefaultValue("DIFF_MODE", "overlay"), "Diff rendering mode (overlay or movement or flat)")
	flag.Float64Var(&threshold, "threshold", envOrDefaultValue("THRESHOLD", 0.1), "Per-channel tolerance in [0, 1]")

	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		os.Exit(1)
	}

	reference := args[0]
	candidateURL := args[1]

	ctx := context.Background()

	config := capture.DefaultPlaywrightConfig()
	if screenshotFormat != "" {
		config.Format = screenshotFormat
	}
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	}

	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		log.Fatalf("failed to install playwright browsers: %v", err)
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, config)
	if err != nil {
		log.Fatalf("failed to initialize capturer: %v", err)
	}

	var s storage.Storage
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: envOrDefaultValue("DIRECTORY", "/tmp"),
		})
		if err != nil {
			log.Fatalf("failed to create file storage backend: %v", err)
		}
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	policy := compare.DefaultPolicy()
	policy.IgnoreAntialiasing = ignoreAntialiasing
	policy.IgnoreColors = ignoreColors
	policy.ScaleToSameSize = scaleToSameSize
	policy.Threshold = threshold
	if diffMode != "" {
		mode, err := compare.ParseDiffMode(diffMode)
		if err != nil {
			log.Fatalf("failed to parse diff mode: %v", err)
		}
		policy.DiffMode = mode
	}

	options := capture.Options{}
	if maskSelectors != "" {
		options.MaskSelectors = strings.Split(maskSelectors, ",")
		for i := range options.MaskSelectors {
			options.MaskSelectors[i] = strings.TrimSpace(options.MaskSelectors[i])
		}
	}

	worker := &Worker{
		Capturer: capturer,
		Storage:  s,
		Policy:   policy,
		Options:  options,
	}

	run := func() error {
		result, err := worker.processComparison(ctx, reference, candidateURL)
		if err != nil {
			return xerrors.Errorf("failed to process comparison: %w", err)
		}

		j, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return xerrors.Errorf("failed to marshal result: %w", err)
		}

		if callbackURL == "" {
			fmt.Println(string(j))
		} else {
			if err := callback(ctx, callbackURL, j); err != nil {
				return xerrors.Errorf("failed to send callback: %w", err)
			}
		}
		return nil
	}

	if schedule == "" {
		if err := run(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		// A failed scheduled run is logged and retried at the next tick.
		if err := run(); err != nil {
			log.Printf("%v", err)
		}
	}); err != nil {
		log.Fatalf("failed to parse schedule %q: %v", schedule, err)
	}
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	<-c.Stop().Done()
}

func (w *Worker) processComparison(ctx context.Context, reference string, candidateURL string) (*WorkerOutput, error) {
	var referenceData []byte
	var candidateData []byte

	// Step 1: Fetch the reference and render the candidate in parallel
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			data, err := acquire.ForSource(reference, acquire.DefaultHTTPConfig()).Acquire(ctx, reference)
			if err != nil {
				return xerrors.Errorf("failed to acquire reference image: %w", err)
			}
			referenceData = data
			return nil
		})

		eg.Go(func() error {
			data, err := w.Capturer.Capture(ctx, candidateURL, w.Options)
			if err != nil {
				return xerrors.Errorf("failed to capture candidate screenshot: %w", err)
			}
			candidateData = data
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	// Step 2: Compare
	referenceImage, err := decodeImage(referenceData)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode reference image: %w", err)
	}
	candidateImage, err := decodeImage(candidateData)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode candidate screenshot: %w", err)
	}

	result, err := compare.Compare(ctx, referenceImage, candidateImage, w.Policy)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare images: %w", err)
	}

	var diffBuffer bytes.Buffer
	if err := png.Encode(&diffBuffer, result.Diff); err != nil {
		return nil, xerrors.Errorf("failed to encode diff image: %w", err)
	}

	// Step 3: Upload all artifacts in parallel
	timestamp := result.ComputedAt.Format("20060102150405")
	h := sha256.New()
	h.Write([]byte(reference + candidateURL))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
	baseKey := fmt.Sprintf("Comparison/%s/%s", hash, timestamp)

	var images report.ImageRefs
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			url, err := w.Storage.Put(ctx, baseKey+".reference.png", referenceData)
			if err != nil {
				return xerrors.Errorf("failed to upload reference image: %w", err)
			}
			images.Reference = url
			return nil
		})

		eg.Go(func() error {
			url, err := w.Storage.Put(ctx, baseKey+".candidate.png", candidateData)
			if err != nil {
				return xerrors.Errorf("failed to upload candidate screenshot: %w", err)
			}
			images.Candidate = url
			return nil
		})

		eg.Go(func() error {
			url, err := w.Storage.Put(ctx, baseKey+".diff.png", diffBuffer.Bytes())
			if err != nil {
				return xerrors.Errorf("failed to upload diff image: %w", err)
			}
			images.Diff = url
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return &WorkerOutput{
		Report:          report.Build(result, images),
		ReferenceSource: reference,
		CandidateURL:    candidateURL,
	}, nil
}

func decodeImage(data []byte) (image.Image, error) {
	return acquire.Decode(data)
}

func callback(ctx context.Context, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, "PATCH", callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 1 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: &retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	return nil
}
