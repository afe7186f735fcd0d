/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/medassist/internal/assistant"
	"github.com/valpere/medassist/internal/config"
	"github.com/valpere/medassist/internal/detector"
	"github.com/valpere/medassist/internal/generator"
	"github.com/valpere/medassist/internal/localizer"
	"github.com/valpere/medassist/internal/metrics"
	"github.com/valpere/medassist/internal/model"
	"github.com/valpere/medassist/internal/normalizer"
	"github.com/valpere/medassist/internal/orchestrator"
	"github.com/valpere/medassist/internal/store"
	"github.com/valpere/medassist/internal/translator"
	"github.com/valpere/medassist/internal/validator"
)

// pipeline holds the assembled assistant and whatever must be closed after it.
type pipeline struct {
	assistant *assistant.Assistant
	metrics   *metrics.Store
	closers   []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Warn("close_failed", "err", err)
		}
	}
}

// buildServices constructs the translation services named in the config, in order.
func buildServices(tc config.TranslationConfig) ([]translator.TranslationService, []func() error, error) {
	var (
		list    []translator.TranslationService
		closers []func() error
	)

	for _, name := range tc.Services {
		switch name {
		case "googleweb":
			list = append(list, translator.NewGoogleWebService(tc.Timeout))
		case "google":
			svc := translator.NewGoogleService(tc.GoogleCredentials)
			list = append(list, svc)
			closers = append(closers, svc.Close)
		case "mymemory":
			list = append(list, translator.NewMyMemoryService(tc.MyMemoryEmail, tc.Timeout))
		case "ollama":
			list = append(list, translator.NewOllamaTranslator(tc.OllamaURL, tc.OllamaModel, tc.Timeout))
		default:
			logger.Warn("unknown_translation_service", "service", name)
		}
	}

	if len(list) == 0 {
		return nil, closers, fmt.Errorf("no valid translation services configured")
	}
	return list, closers, nil
}

// buildBackend picks the answer generation backend.
func buildBackend(ctx context.Context, mc config.ModelConfig) (generator.Backend, error) {
	switch mc.Backend {
	case config.BackendInference:
		pretrained, err := model.Load(mc.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load model: %w", err)
		}
		logger.Info("model_loaded", "name", pretrained.Name, "type", pretrained.ModelType, "dir", pretrained.Dir)
		return model.NewInferenceClient(mc.URL, pretrained, mc.Timeout), nil
	case config.BackendOllama:
		return model.NewOllamaClient(mc.Name, mc.URL, mc.Timeout), nil
	case config.BackendGemini:
		return model.NewGeminiClient(ctx, mc.APIKey, mc.Name, mc.Timeout)
	default:
		return nil, fmt.Errorf("unknown model backend: %s", mc.Backend)
	}
}

func openHistory(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return db, nil
}

// buildPipeline wires detector, translators, backend and history into an assistant.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &pipeline{metrics: metrics.NewStore()}

	det := detector.New()

	services, closers, err := buildServices(cfg.Translation)
	p.closers = append(p.closers, closers...)
	if err != nil {
		p.Close()
		return nil, err
	}

	var check *validator.Validator
	if cfg.Translation.Validate {
		check = validator.New(det)
	}
	orch := orchestrator.New(services, orchestrator.OrchestratorConfig{
		Timeout:     cfg.Translation.Timeout,
		MaxAttempts: cfg.Translation.MaxAttempts,
		RetryDelay:  cfg.Translation.RetryDelay,
		Validator:   check,
		Logger:      logger,
	})

	backend, err := buildBackend(ctx, cfg.Model)
	if err != nil {
		p.Close()
		return nil, err
	}

	opts := assistant.Options{
		Pivot:   cfg.Assistant.Pivot,
		Metrics: p.metrics,
		Logger:  logger,
	}
	if cfg.History.Enabled {
		db, err := openHistory(cfg.History.Path)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.closers = append(p.closers, db.Close)
		opts.Recorder = db
	}

	p.assistant = assistant.New(
		normalizer.New(det, orch, cfg.Assistant.Pivot, logger),
		generator.New(backend, cfg.Generation.MaxConcurrent, logger),
		localizer.New(orch, cfg.Assistant.Pivot, logger),
		opts,
	)

	logger.Info("pipeline_ready",
		"backend", backend.Name(),
		"translation_services", orch.Services(),
		"pivot", cfg.Assistant.Pivot,
		"history", cfg.History.Enabled,
	)
	return p, nil
}
