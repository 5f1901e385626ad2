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
	"os"
	"pagematch/internal/acquire"
	"pagematch/internal/compare"
	"pagematch/internal/report"
	"pagematch/internal/storage"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

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

	var directory string
	var ignoreAntialiasing bool
	var ignoreColors bool
	var scaleToSameSize bool
	var diffMode string
	var highlightColor string
	var highlightTransparency float64
	var threshold float64
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", "/tmp"), "Output directory")
	flag.BoolVar(&ignoreAntialiasing, "ignore-antialiasing", envOrDefaultValue("IGNORE_ANTIALIASING", false), "Discount divergence consistent with anti-aliased edges")
	flag.BoolVar(&ignoreColors, "ignore-colors", envOrDefaultValue("IGNORE_COLORS", false), "Compare brightness only")
	flag.BoolVar(&scaleToSameSize, "scale-to-same-size", envOrDefaultValue("SCALE_TO_SAME_SIZE", false), "Resample unequal inputs to a common size instead of failing")
	flag.StringVar(&diffMode, "diff-mode", envOrDefaultValue("DIFF_MODE", "overlay"), "Diff rendering mode (overlay or movement or flat)")
	flag.StringVar(&highlightColor, "highlight-color", envOrDefaultValue("HIGHLIGHT_COLOR", ""), "Highlight color as #rrggbb")
	flag.Float64Var(&highlightTransparency, "highlight-transparency", envOrDefaultValue("HIGHLIGHT_TRANSPARENCY", 0.7), "Highlight blend factor in [0, 1]")
	flag.Float64Var(&threshold, "threshold", envOrDefaultValue("THRESHOLD", 0.1), "Per-channel tolerance in [0, 1]")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("reference, candidate not specified")
	}

	reference := args[0]
	candidate := args[1]

	ctx := context.Background()
	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	policy := compare.DefaultPolicy()
	policy.IgnoreAntialiasing = ignoreAntialiasing
	policy.IgnoreColors = ignoreColors
	policy.ScaleToSameSize = scaleToSameSize
	policy.HighlightTransparency = highlightTransparency
	policy.Threshold = threshold
	if diffMode != "" {
		mode, err := compare.ParseDiffMode(diffMode)
		if err != nil {
			log.Fatalf("Failed to parse diff mode: %v", err)
		}
		policy.DiffMode = mode
	}
	if highlightColor != "" {
		c, err := compare.ParseHexColor(highlightColor)
		if err != nil {
			log.Fatalf("Failed to parse highlight color: %v", err)
		}
		policy.HighlightColor = c
	}

	referenceImage, err := loadImage(ctx, reference)
	if err != nil {
		log.Fatalf("Failed to load reference image: %v", err)
	}

	candidateImage, err := loadImage(ctx, candidate)
	if err != nil {
		log.Fatalf("Failed to load candidate image: %v", err)
	}

	result, err := compare.Compare(ctx, referenceImage, candidateImage, policy)
	if err != nil {
		log.Fatalf("Failed to compare images: %v", err)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, result.Diff); err != nil {
		log.Fatalf("Failed to encode diff image: %v", err)
	}

	h := sha256.New()
	h.Write([]byte(reference + candidate))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
	timestamp := result.ComputedAt.Format("20060102150405")

	diffPath, err := s.Put(ctx, fmt.Sprintf("Comparison/%s/%s.diff.png", hash, timestamp), buffer.Bytes())
	if err != nil {
		log.Fatalf("Failed to save diff image: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(report.Build(result, report.ImageRefs{
		Reference: reference,
		Candidate: candidate,
		Diff:      diffPath,
	})); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func loadImage(ctx context.Context, source string) (image.Image, error) {
	data, err := acquire.ForSource(source, acquire.DefaultHTTPConfig()).Acquire(ctx, source)
	if err != nil {
		return nil, err
	}
	return acquire.Decode(data)
}
