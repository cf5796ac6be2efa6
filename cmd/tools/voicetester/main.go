package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/carewell/medibot/internal/backend"
	"github.com/carewell/medibot/internal/config"
	"github.com/carewell/medibot/internal/service/speech"
)

// One-shot tester for the backend speech endpoints: -mode=stt transcribes an
// audio file, -mode=tts synthesizes text to a file.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "test mode: stt or tts")
	audioPath := flag.String("audio", "", "input audio file for -mode=stt")
	text := flag.String("text", "", "input text for -mode=tts")
	outputPath := flag.String("out", "", "output audio file for -mode=tts (default derived from format)")
	language := flag.String("lang", "", "language tag, defaults to the configured language")
	voice := flag.String("voice", "", "voice id for -mode=tts, defaults to the configured voice")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	if *mode != "stt" && *mode != "tts" {
		flag.Usage()
		log.Fatal("pick a test mode with -mode=stt or -mode=tts")
	}

	lang := *language
	if lang == "" {
		lang = cfg.Speech.Language
	}
	voiceID := *voice
	if voiceID == "" {
		voiceID = cfg.Speech.Voice
	}

	client := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	svc := speech.NewService(client, speech.Config{
		Language: lang,
		Voice:    voiceID,
		Rate:     cfg.Speech.Rate,
		Format:   cfg.Speech.Format,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "stt":
		runSTT(ctx, svc, *audioPath)
	case "tts":
		runTTS(ctx, svc, *text, *outputPath, cfg.Speech.Format)
	}
}

func runSTT(ctx context.Context, svc *speech.Service, audioPath string) {
	if audioPath == "" {
		log.Fatal("-mode=stt requires -audio")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("read audio file: %v", err)
	}

	start := time.Now()
	transcript, err := svc.Transcribe(ctx, data)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcription finished in %s", time.Since(start).Round(time.Millisecond))
	fmt.Println(transcript)
}

func runTTS(ctx context.Context, svc *speech.Service, text, outputPath, format string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("-mode=tts requires -text")
	}
	if outputPath == "" {
		ext := format
		if ext == "" {
			ext = "wav"
		}
		outputPath = fmt.Sprintf("tts-%d.%s", time.Now().Unix(), ext)
	}

	start := time.Now()
	audio, err := svc.Synthesize(ctx, text)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Join(".", outputPath)), 0o755); err != nil {
		log.Fatalf("prepare output directory: %v", err)
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		log.Fatalf("write output file: %v", err)
	}

	log.Printf("synthesis finished in %s, wrote %d bytes to %s",
		time.Since(start).Round(time.Millisecond), len(audio), outputPath)
}
