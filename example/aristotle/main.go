package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/aristotle-ai/quizflow/agent"
	"github.com/aristotle-ai/quizflow/dialogue"
	"github.com/aristotle-ai/quizflow/extract"
	"github.com/aristotle-ai/quizflow/generate"
	"github.com/aristotle-ai/quizflow/material"
	"github.com/aristotle-ai/quizflow/slots"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	config, err := loadConfig(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startApp(context.Background(), config); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func buildSession(ctx context.Context, config *Config) (*agent.Session, error) {
	var cache agent.Cache[slots.SlotSet]
	if config.StateDir != "" {
		cache = agent.NewFileCache[slots.SlotSet](config.StateDir)
	} else {
		cache = agent.NewMemoryCache[slots.SlotSet]()
	}
	store, err := agent.NewSlotStore(cache)
	if err != nil {
		return nil, err
	}

	backend := generate.NewRemoteClient(config.BackendURL, nil)

	var extractor extract.Extractor = extract.NewRemoteExtractor(config.BackendURL, nil)
	var clarifier dialogue.Generator = dialogue.NewFailbackGenerator(
		dialogue.NewRemoteGenerator(config.BackendURL, nil),
		&dialogue.LocalGenerator{},
	)
	if config.APIKey != "" {
		cm, mErr := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  config.APIKey,
			Model:   config.Model,
			BaseURL: config.BaseURL,
		})
		if mErr != nil {
			return nil, mErr
		}
		toolExtractor, tErr := extract.NewToolBasedExtractor(cm)
		if tErr != nil {
			return nil, tErr
		}
		extractor = extract.NewFailbackExtractor(
			extract.NewRemoteExtractor(config.BackendURL, nil),
			toolExtractor,
		)
		clarifier = dialogue.NewFailbackGenerator(
			dialogue.NewRemoteGenerator(config.BackendURL, nil),
			dialogue.NewToolBasedGenerator(cm, dialogue.DefaultClarifySystemPrompt),
			&dialogue.LocalGenerator{},
		)
	}

	return agent.NewSession(agent.Config{
		Extractor:  extractor,
		Dialogue:   clarifier,
		Generator:  backend,
		Saver:      backend,
		Uploader:   material.NewUploader(config.BackendURL, nil),
		Store:      store,
		Transcript: agent.NewMemoryTranscriptStore(agent.KeepLastNTrimmer{N: 200}),
	})
}

func startApp(ctx context.Context, config *Config) error {
	ctx = agent.WithSessionKey(ctx, "aristotle")

	session, err := buildSession(ctx, config)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Println(agent.Greeting)
	fmt.Println(`(commands: /upload <path>, /reset, /quit)`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("you: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("input closed, exiting.")
			return nil
		}
		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case input == "/quit":
			return nil
		case input == "/reset":
			if err := session.Reset(ctx); err != nil {
				return err
			}
			fmt.Println(agent.Greeting)
			continue
		case strings.HasPrefix(input, "/upload "):
			path := strings.TrimSpace(strings.TrimPrefix(input, "/upload "))
			if err := runUpload(ctx, session, path); err != nil {
				fmt.Printf("upload failed: %v\n", err)
			}
			continue
		}

		replies, tErr := session.HandleTurn(ctx, input)
		if tErr != nil {
			fmt.Printf("error: %v\n", tErr)
			continue
		}
		for _, reply := range replies {
			fmt.Printf("\naristotle: %s\n", reply.Content)
		}
	}
}

func runUpload(ctx context.Context, session *agent.Session, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	replies, err := session.UploadMaterial(ctx, filepath.Base(path), file)
	if err != nil {
		return err
	}
	for _, reply := range replies {
		fmt.Printf("\naristotle: %s\n", reply.Content)
	}
	return nil
}
