// Package pipeline declares the stage graph: which queue each stage consumes
// and which queues it may publish to. One process runs exactly one stage.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/pkms/content-pipeline/internal/config"
	"github.com/pkms/content-pipeline/internal/worker"
)

// Stage names accepted by the process selector.
const (
	StageClassifier  = "classifier"
	StageCrawler     = "crawler"
	StageTranscriber = "transcriber"
	StageSummarizer  = "summarizer"
	StageEmbedding   = "embedding"
	StageNotifier    = "notifier"
)

// Topology is the queue binding of one stage.
type Topology struct {
	InputQueue   string
	OutputQueues []string
}

// Topologies returns the full stage graph for the configured queue names.
func Topologies(cfg *config.Config) map[string]Topology {
	return map[string]Topology{
		StageClassifier: {
			InputQueue:   cfg.ClassifyQueue,
			OutputQueues: []string{cfg.CrawlQueue, cfg.TranscribeQueue},
		},
		StageCrawler: {
			InputQueue:   cfg.CrawlQueue,
			OutputQueues: []string{cfg.SummaryQueue},
		},
		StageTranscriber: {
			InputQueue:   cfg.TranscribeQueue,
			OutputQueues: []string{cfg.SummaryQueue},
		},
		StageSummarizer: {
			InputQueue:   cfg.SummaryQueue,
			OutputQueues: []string{cfg.EmbeddingQueue},
		},
		StageEmbedding: {
			InputQueue:   cfg.EmbeddingQueue,
			OutputQueues: nil,
		},
		StageNotifier: {
			InputQueue:   cfg.NotifyQueue,
			OutputQueues: nil,
		},
	}
}

// Names lists the known stage names in stable order.
func Names() []string {
	names := []string{
		StageClassifier,
		StageCrawler,
		StageTranscriber,
		StageSummarizer,
		StageEmbedding,
		StageNotifier,
	}
	sort.Strings(names)
	return names
}

// WorkerConfig builds the kernel configuration for one stage.
func WorkerConfig(cfg *config.Config, stage string) (worker.Config, error) {
	topo, ok := Topologies(cfg)[stage]
	if !ok {
		return worker.Config{}, fmt.Errorf("unknown stage %q, expected one of %v", stage, Names())
	}
	return worker.Config{
		Stage:             stage,
		BrokerURL:         cfg.BrokerURL,
		Exchange:          cfg.Exchange,
		InputQueue:        topo.InputQueue,
		OutputQueues:      topo.OutputQueues,
		ErrorQueue:        cfg.ErrorQueue,
		ProcessingTimeout: cfg.ProcessingTimeout,
		MaxRetries:        cfg.MaxRetries,
	}, nil
}
