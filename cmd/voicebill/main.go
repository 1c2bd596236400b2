package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/mkrish/voicebill/internal/billing"
	"github.com/mkrish/voicebill/internal/extracting"
	"github.com/mkrish/voicebill/internal/publishing"
	"github.com/mkrish/voicebill/internal/transcribing"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Optional .env file for local development
	godotenv.Load()

	fs := ff.NewFlagSet("voicebill")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dbPath          = fs.StringLong("db", "voicebill.db", "Database file path")
		storagePath     = fs.StringLong("storage", "./invoices", "Rendered invoice storage directory")
		businessName    = fs.StringLong("business", "Voicebill Store", "Business name printed on invoices")
		transcriberType = fs.StringLong("transcriber", "assemblyai", "Transcriber type: 'assemblyai' or 'whisper'")
		assemblyKey     = fs.StringLong("assemblyai-key", "", "AssemblyAI API key (or set ASSEMBLYAI_API_KEY env var)")
		language        = fs.StringLong("language", "ta", "Speech language code for transcription")
		extractorType   = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'openai'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		openaiKey       = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel     = fs.StringLong("openai-model", "", "OpenAI model name for extraction")
		whisperModel    = fs.StringLong("whisper-model", "", "OpenAI model name for transcription")
		cloudName       = fs.StringLong("cloudinary-cloud", "", "Cloudinary cloud name")
		uploadPreset    = fs.StringLong("cloudinary-preset", "", "Cloudinary unsigned upload preset")
		shortenerType   = fs.StringLong("shortener", "tinyurl", "Shortener type: 'tinyurl' or 'bitly'")
		tinyurlToken    = fs.StringLong("tinyurl-token", "", "TinyURL API token (or set TINYURL_TOKEN env var)")
		bitlyToken      = fs.StringLong("bitly-token", "", "Bitly access token (or set BITLY_TOKEN env var)")
		payeeVPA        = fs.StringLong("payee-vpa", "", "UPI virtual payment address for the payment QR")
		payeeName       = fs.StringLong("payee-name", "", "Payee display name for the payment QR")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("VOICEBILL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := billing.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize transcriber based on type
	var transcriber transcribing.Transcriber
	switch *transcriberType {
	case "assemblyai":
		apiKey := *assemblyKey
		if apiKey == "" {
			apiKey = os.Getenv("ASSEMBLYAI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("AssemblyAI API key is required. Set --assemblyai-key flag or ASSEMBLYAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing AssemblyAI transcriber...", "language", *language)
		transcriber, err = transcribing.NewAssemblyAI(apiKey, *language)
		if err != nil {
			slog.Error("Failed to initialize AssemblyAI", "error", err)
			os.Exit(1)
		}
	case "whisper":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Whisper transcriber...", "model", *whisperModel, "language", *language)
		transcriber, err = transcribing.NewWhisper(apiKey, *whisperModel, *language)
		if err != nil {
			slog.Error("Failed to initialize Whisper", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid transcriber type", "type", *transcriberType, "valid", "assemblyai or whisper")
		os.Exit(1)
	}
	defer transcriber.Close()

	// Initialize extractor based on type
	var extractor extracting.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extracting.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "openai":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing OpenAI extractor...", "model", *openaiModel)
		extractor, err = extracting.NewOpenAI(apiKey, *openaiModel)
		if err != nil {
			slog.Error("Failed to initialize OpenAI", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or openai")
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize uploader
	uploader, err := publishing.NewCloudinary(*cloudName, *uploadPreset)
	if err != nil {
		slog.Error("Failed to initialize Cloudinary", "error", err)
		os.Exit(1)
	}

	// Initialize shortener based on type
	var shortener publishing.Shortener
	switch *shortenerType {
	case "tinyurl":
		token := *tinyurlToken
		if token == "" {
			token = os.Getenv("TINYURL_TOKEN")
		}
		shortener, err = publishing.NewTinyURL(token)
		if err != nil {
			slog.Error("Failed to initialize TinyURL", "error", err)
			os.Exit(1)
		}
	case "bitly":
		token := *bitlyToken
		if token == "" {
			token = os.Getenv("BITLY_TOKEN")
		}
		shortener, err = publishing.NewBitly(token)
		if err != nil {
			slog.Error("Failed to initialize Bitly", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid shortener type", "type", *shortenerType, "valid", "tinyurl or bitly")
		os.Exit(1)
	}

	if *payeeVPA == "" {
		slog.Error("Payee VPA is required. Set --payee-vpa flag or VOICEBILL_PAYEE_VPA environment variable")
		os.Exit(1)
	}

	publisher := publishing.NewPublisher(
		publishing.NewPDFRenderer(*businessName),
		uploader,
		shortener,
		publishing.Payee{VPA: *payeeVPA, Name: *payeeName},
	)

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := billing.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	billingService := billing.NewService(db, transcriber, extractor, publisher, store)

	// Initialize server
	basicAuth := billing.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := billing.NewServer(billingService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
