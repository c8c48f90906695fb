package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kwetherill/streamgauge/internal/config"
	"github.com/kwetherill/streamgauge/internal/sample"
)

// Pipeline orchestrates the stages: consumer, parsing, calculation, reporting.
type Pipeline struct {
	cfg        *config.Config
	consumer   *Consumer
	calculator *Calculator
	reporter   *Reporter
	logger     *zap.Logger

	rawMessages   chan []byte
	observations  chan sample.Observation
	windowResults chan WindowResult
}

// New creates and wires up a new monitoring pipeline.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")
	initLogger.Debug("Creating pipeline components...")

	const channelBufferSize = 100
	rawMessages := make(chan []byte, channelBufferSize)
	observations := make(chan sample.Observation, channelBufferSize)
	windowResults := make(chan WindowResult, channelBufferSize)

	consumerInstance, err := NewConsumer(cfg.Kafka, rawMessages, logger.Named("consumer"))
	if err != nil {
		initLogger.Error("Failed to create consumer", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConsumerCreationFailed, err)
	}

	calculatorInstance, err := NewCalculator(cfg.Pipeline, cfg.Metrics, observations, windowResults, logger.Named("calculator"))
	if err != nil {
		initLogger.Error("Failed to create calculator", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCalculatorCreationFailed, err)
	}

	reporterInstance := NewReporter(cfg.Metrics, windowResults, logger.Named("reporter"))

	p := &Pipeline{
		cfg:           cfg,
		consumer:      consumerInstance,
		calculator:    calculatorInstance,
		reporter:      reporterInstance,
		logger:        logger.Named("pipeline"),
		rawMessages:   rawMessages,
		observations:  observations,
		windowResults: windowResults,
	}

	initLogger.Info("Pipeline instance created successfully")
	return p, nil
}

// Run starts all pipeline components and waits for them to complete or
// context cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	var wg sync.WaitGroup
	pipelineErr := make(chan error, 4) // consumer, parser, calculator, reporter

	sugar.Info("Pipeline Run: Starting components...")

	wg.Add(4)
	go p.runConsumer(ctx, &wg, pipelineErr)
	go p.runParser(ctx, &wg)
	go p.runCalculator(ctx, &wg, pipelineErr)
	go p.runReporter(ctx, &wg, pipelineErr)

	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled. Waiting for components to finish...")
		firstErr = ctx.Err()
	case err := <-pipelineErr:
		sugar.Errorw("Pipeline Run: Received error from a component, initiating shutdown...", zap.Error(err))
		firstErr = err
	}

	wg.Wait()
	sugar.Info("Pipeline Run: All components finished.")

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

func (p *Pipeline) runConsumer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.rawMessages)
		p.logger.Debug("Raw messages channel closed")
	}()

	if err := p.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Consumer component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrConsumerRunFailed, err)
	}
}

// runParser turns raw payloads into validated observations, dropping the
// malformed ones with a warning.
func (p *Pipeline) runParser(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		close(p.observations)
		p.logger.Debug("Observations channel closed")
	}()

	parserLogger := p.logger.Named("parser").Sugar()

	for {
		select {
		case rawMsg, ok := <-p.rawMessages:
			if !ok {
				parserLogger.Debug("Parser finished (raw message channel closed).")
				return
			}

			obs, err := sample.Parse(rawMsg)
			if err != nil {
				parserLogger.Warnw("Failed to parse observation, skipping", zap.Error(err))
				continue
			}

			select {
			case p.observations <- obs:

			case <-ctx.Done():
				parserLogger.Debug("Parser context cancelled during send.", zap.Error(ctx.Err()))
				return
			}

		case <-ctx.Done():
			parserLogger.Debug("Parser context cancelled while waiting for raw message.", zap.Error(ctx.Err()))
			return
		}
	}
}

func (p *Pipeline) runCalculator(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.windowResults)
		p.logger.Debug("Window results channel closed")
	}()

	if err := p.calculator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Calculator component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrCalculatorRunFailed, err)
	}
}

func (p *Pipeline) runReporter(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()

	if err := p.reporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Reporter component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrReporterRunFailed, err)
	}
}
