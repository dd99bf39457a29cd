package main

import (
	"context"
	"github.com/golang/freetype/truetype"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/archive"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/chart"
	"github.com/myrjola/portrait/internal/chat"
	"github.com/myrjola/portrait/internal/config"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/fonts"
	"github.com/myrjola/portrait/internal/orchestrator"
	"github.com/myrjola/portrait/internal/portrait"
	"github.com/myrjola/portrait/internal/session"
	"log/slog"
)

// newOrchestrator wires the pipeline from cfg. Sending goes through sender.
func newOrchestrator(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	sender chat.Sender,
) (*orchestrator.Orchestrator, *session.Store, error) {
	b, err := bank.Load(cfg.DataDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load bank")
	}

	fontSet := fonts.Probe(append([]string{cfg.FontDir}, fonts.SystemDirs...)...)
	if !fontSet.Available() {
		logger.LogAttrs(ctx, slog.LevelWarn, "no unicode font found, using core fonts")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "fonts probed", slog.Any("fonts", fontSet))
	var face *truetype.Font
	if fontSet.Available() {
		if face, err = fonts.Parse(fontSet.Regular); err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "chart font unusable", errors.SlogError(err))
		}
	}

	var completer ai.Completer
	provider := ""
	if cfg.LLMEnabled() {
		completer = ai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.LLMMaxTokens)
		provider = cfg.LLMProviderName
	}
	interpreter, err := ai.NewInterpreter(logger, cfg.DataDir, completer, cfg.BuildTimeout)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load prompts")
	}

	var uploader archive.Uploader
	if cfg.ArchiveEnabled() {
		uploader = archive.NewWebDAV(logger, cfg.WebDAVURL, cfg.WebDAVUser, cfg.WebDAVPassword,
			cfg.WebDAVFolder, cfg.PDFTimeout)
	}

	sessions := session.NewStore(logger, cfg.ScratchDir, cfg.SessionTimeout, cfg.LLMRatePerMin)
	orch := orchestrator.New(logger, orchestrator.Deps{
		Bank:        b,
		Sessions:    sessions,
		Sender:      sender,
		Charts:      chart.NewRenderer(logger, face, cfg.ChartTimeout),
		Interpreter: interpreter,
		Composer:    portrait.NewComposer(logger, portrait.Options{Fonts: fontSet, Appendix: cfg.AppendixEnabled}),
		Uploader:    uploader,
	}, orchestrator.Options{
		OutDir:      cfg.OutDir,
		PDFTimeout:  cfg.PDFTimeout,
		AccessToken: cfg.AccessToken,
		Provider:    provider,
	})
	return orch, sessions, nil
}
