package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/carewell/medibot/internal/backend"
	"github.com/carewell/medibot/internal/config"
	"github.com/carewell/medibot/internal/service/assistant"
	"github.com/carewell/medibot/internal/service/audio"
	"github.com/carewell/medibot/internal/service/chatbot"
	"github.com/carewell/medibot/internal/service/recognition"
	"github.com/carewell/medibot/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	mode := flag.String("mode", "chat", "mode: chat, assistant, voicebot, login or logout")
	username := flag.String("username", "", "admin username for -mode=login")
	password := flag.String("password", "", "admin password for -mode=login")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	tokenPath := cfg.Backend.TokenPath
	if tokenPath == "" {
		tokenPath = backend.DefaultTokenPath()
	}
	client := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Tokens:  backend.NewTokenStore(tokenPath),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !client.Ping(ctx) {
		log.Printf("warning: backend at %s is not reachable, turns will fail until it is", cfg.Backend.BaseURL)
	}

	switch *mode {
	case "chat":
		err = runChat(ctx, client, newSpeechService(client, cfg.Speech))
	case "assistant":
		err = runVoice(ctx, client, cfg.Speech, &assistant.VoiceAssistantEndpoint{Client: client})
	case "voicebot":
		err = runVoice(ctx, client, cfg.Speech, &assistant.VoicebotEndpoint{Client: client})
	case "login":
		err = runLogin(ctx, client, *username, *password)
	case "logout":
		err = client.Logout(ctx)
	default:
		flag.Usage()
		log.Fatalf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *mode, err)
	}
}

func runLogin(ctx context.Context, client *backend.Client, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("login requires -username and -password")
	}
	resp, err := client.Login(ctx, backend.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", resp.User.Username)
	return nil
}

func newSpeechService(client *backend.Client, speechCfg config.SpeechConfig) *speech.Service {
	return speech.NewService(client, speech.Config{
		Language: speechCfg.Language,
		Voice:    speechCfg.Voice,
		Rate:     speechCfg.Rate,
		Format:   speechCfg.Format,
	})
}

// runChat is a line-oriented typed-chat loop. Quick-reply options are shown
// numbered; entering a number selects that option, and /record captures a
// voice message whose transcript becomes the turn.
func runChat(ctx context.Context, client *backend.Client, speechSvc *speech.Service) error {
	conv := chatbot.NewConversation(client, func(title, detail string) {
		log.Printf("[chat] %s: %s", title, detail)
	})
	fmt.Println("bot:", chatbot.Greeting)
	fmt.Println(`(type /record for a voice message, /new to start over, /history for the server transcript, /quit to exit)`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			return conv.Reset(ctx)
		case line == "/new":
			if err := conv.Reset(ctx); err != nil {
				log.Printf("[chat] ending conversation: %v", err)
			}
			fmt.Println("bot:", chatbot.Greeting)
			continue
		case line == "/history":
			printHistory(ctx, conv)
			continue
		case line == "/record":
			fmt.Println("recording... press Enter to stop")
			err := recordChatMessage(ctx, conv, speechSvc,
				func() (audio.CaptureDevice, error) { return audio.OpenMicrophone() },
				func() { scanner.Scan() })
			if err != nil {
				log.Printf("[chat] voice message failed: %v", err)
				continue
			}
			printLatest(conv)
			continue
		}

		var err error
		if idx, selected := selectedOption(line, conv); selected {
			err = conv.SelectOption(ctx, idx)
		} else {
			err = conv.Send(ctx, line)
		}
		if err != nil {
			log.Printf("[chat] turn failed: %v", err)
		}
		printLatest(conv)
	}
}

type transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// recordChatMessage mirrors the chat page's voice-message button: capture one
// utterance, transcribe it, and send the transcript as a regular turn. wait
// blocks until the user ends the recording.
func recordChatMessage(ctx context.Context, conv *chatbot.Conversation, svc transcriber, openMic func() (audio.CaptureDevice, error), wait func()) error {
	dev, err := openMic()
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	rec := audio.NewRecorder(dev)
	if err := rec.Start(); err != nil {
		return err
	}
	wait()

	wav, err := rec.Stop()
	if err != nil {
		return err
	}
	text, err := svc.Transcribe(ctx, wav)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		fmt.Println("(no speech detected)")
		return nil
	}
	fmt.Println("you:", text)
	return conv.Send(ctx, text)
}

func selectedOption(line string, conv *chatbot.Conversation) (string, bool) {
	opts := conv.Options()
	if len(opts) == 0 {
		return "", false
	}
	var n int
	if _, err := fmt.Sscanf(line, "%d", &n); err != nil || n < 1 || n > len(opts) {
		return "", false
	}
	return opts[n-1].Value, true
}

func printLatest(conv *chatbot.Conversation) {
	msgs := conv.Messages()
	if len(msgs) > 0 {
		fmt.Println("bot:", msgs[len(msgs)-1].Content)
	}
	for i, opt := range conv.Options() {
		label := opt.Label
		if opt.Description != "" {
			label += " — " + opt.Description
		}
		fmt.Printf("  %d) %s\n", i+1, label)
	}
}

func printHistory(ctx context.Context, conv *chatbot.Conversation) {
	history, err := conv.History(ctx)
	if err != nil {
		log.Printf("[chat] fetching history: %v", err)
		return
	}
	if len(history) == 0 {
		fmt.Println("(no server-side history yet)")
		return
	}
	for _, m := range history {
		fmt.Printf("%s: %s\n", m.Role, m.Content)
	}
}

// runVoice runs the hands-free loop: microphone, recognizer and one session
// against the chosen endpoint family, until interrupted.
func runVoice(ctx context.Context, client *backend.Client, speechCfg config.SpeechConfig, endpoint assistant.TurnEndpoint) error {
	speechSvc := newSpeechService(client, speechCfg)
	player := audio.NewPlayer(audio.Speaker{}, speechSvc, client)

	session := assistant.NewSession(endpoint, player, func(title, detail string) {
		log.Printf("[assistant] %s: %s", title, detail)
	})

	openMic := func() (audio.CaptureDevice, error) { return audio.OpenMicrophone() }
	var source recognition.Source
	if speechCfg.RecognizerWSURL != "" {
		source = &recognition.WSSource{URL: speechCfg.RecognizerWSURL, OpenDevice: openMic}
	} else {
		source = &recognition.STTSource{Transcriber: client, OpenDevice: openMic, Format: speechCfg.Format}
	}

	recognizer := recognition.New(source, recognition.Config{
		Language:     speechCfg.Language,
		Debounce:     speechCfg.Debounce,
		RestartDelay: speechCfg.RestartDelay,
	}, recognition.Callbacks{
		OnTranscript: func(live string) {
			if live != "" {
				fmt.Printf("\r… %s", live)
			}
		},
		OnCommit: func(text string) {
			fmt.Printf("\nyou: %s\n", text)
			if err := session.SubmitTurn(ctx, text); err != nil {
				log.Printf("[assistant] turn failed: %v", err)
			}
			msgs := session.Messages()
			fmt.Println("bot:", msgs[len(msgs)-1].Content)
		},
		OnState: func(s recognition.State) {
			log.Printf("[asr] state: %s", s)
		},
	})

	fmt.Println("bot:", assistant.Greeting)
	session.Start()
	if err := recognizer.Start(ctx); err != nil {
		return err
	}
	defer recognizer.Stop()

	if err := player.Speak(ctx, assistant.Greeting); err != nil {
		log.Printf("[assistant] greeting speech failed: %v", err)
	}

	<-ctx.Done()
	fmt.Println("\nshutting down")
	session.Reset(context.Background())
	return nil
}
