package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/safespace/safespace-agent/internal/config"
	"github.com/safespace/safespace-agent/internal/handler"
	"github.com/safespace/safespace-agent/internal/service/agent"
	"github.com/safespace/safespace-agent/internal/service/knowledge"
	"github.com/safespace/safespace-agent/internal/service/locator"
	"github.com/safespace/safespace-agent/internal/service/orchestrator"
	"github.com/safespace/safespace-agent/internal/service/search"
	"github.com/safespace/safespace-agent/internal/service/session"
	"github.com/safespace/safespace-agent/internal/service/speech"
	"github.com/safespace/safespace-agent/internal/service/telephony"
	"github.com/safespace/safespace-agent/internal/service/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessionStore := session.NewStore()
	knowledgeStore := knowledge.NewStore()

	toolbox := &agent.Toolbox{
		Knowledge: knowledgeStore,
		Search:    search.NewClient(cfg.Providers.SearchURL, cfg.Providers.Timeout),
		Locator:   locator.NewClient(cfg.Providers.GeocodeURL, cfg.Providers.OverpassURL, cfg.Providers.Timeout),
		Phone:     telephony.NewClient(cfg.Twilio, cfg.Providers.Timeout),
		AffirmURL: cfg.Providers.AffirmURL,
	}

	var agentProvider orchestrator.Agent
	var visionProvider orchestrator.Vision
	if cfg.Agent.Enabled() {
		chatModel, err := cfg.Agent.NewChatModel(ctx)
		if err != nil {
			log.Fatalf("failed to create chat model: %v", err)
		}
		agentSvc, err := agent.NewService(ctx, chatModel, toolbox, cfg.Agent)
		if err != nil {
			log.Fatalf("failed to initialize agent: %v", err)
		}
		agentProvider = agentSvc
		log.Println("agent service initialized")

		visionModel, err := cfg.Agent.NewVisionModel(ctx)
		if err != nil {
			log.Printf("warning: vision model unavailable: %v", err)
		} else {
			visionProvider = vision.NewService(visionModel)
			log.Println("vision service initialized")
		}
	} else {
		log.Println("ark credentials not configured, text and image pipelines run degraded")
	}

	var transcriberProvider orchestrator.Transcriber
	var premium speech.SynthesizerProvider
	if cfg.Speech.Enabled {
		transcriberProvider = speech.NewTranscriber(cfg.Speech)
		premium = speech.NewSynthesizer(cfg.Speech)
		log.Println("speech service initialized")
	} else {
		log.Println("speech credentials not configured, premium voice disabled")
	}
	voiceSvc := speech.NewVoiceService(premium, speech.NewFreeTTS(cfg.Speech.FreeTTSURL, cfg.Speech.TTSLanguage))

	orch := orchestrator.New(sessionStore, agentProvider, visionProvider, transcriberProvider, voiceSvc, cfg.Providers.Timeout)
	router := handler.NewRouter(orch, knowledgeStore)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("SafeSpace agent listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
