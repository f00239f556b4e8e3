package defines

import "strings"

// JobStatus is the local lifecycle state of an ingestion job
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusPolling   JobStatus = "polling"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimeout   JobStatus = "timeout"
)

// IsTerminal reports whether no further transition can leave this status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusTimeout
}

// IsSettled reports whether the remote job itself has finished. A timeout only
// ends local waiting, so it is terminal but not settled.
func (s JobStatus) IsSettled() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Strategy is the partitioning strategy handed to the ingestion service
type Strategy string

const (
	StrategyAuto    Strategy = "auto"
	StrategyFast    Strategy = "fast"
	StrategyHiRes   Strategy = "hi_res"
	StrategyOCROnly Strategy = "ocr_only"
	StrategyVLM     Strategy = "vlm"

	DefaultStrategy = StrategyHiRes
)

// Strategies lists every accepted strategy in documentation order
var Strategies = []Strategy{StrategyAuto, StrategyFast, StrategyHiRes, StrategyOCROnly, StrategyVLM}

// ParseStrategy returns the strategy for s; an empty string yields the default
func ParseStrategy(s string) (Strategy, bool) {
	if strings.TrimSpace(s) == "" {
		return DefaultStrategy, true
	}
	for _, st := range Strategies {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ChunkingStrategy selects how partitioned elements are grouped
type ChunkingStrategy string

const (
	ChunkByTitle ChunkingStrategy = "by_title"
	ChunkByPage  ChunkingStrategy = "by_page"

	DefaultChunkingStrategy = ChunkByTitle
)

// ParseChunkingStrategy returns the chunking strategy for s; empty yields by_title
func ParseChunkingStrategy(s string) (ChunkingStrategy, bool) {
	switch ChunkingStrategy(strings.TrimSpace(s)) {
	case "":
		return DefaultChunkingStrategy, true
	case ChunkByTitle:
		return ChunkByTitle, true
	case ChunkByPage:
		return ChunkByPage, true
	}
	return "", false
}

// DestinationKind is the closed set of sink variants
type DestinationKind string

const (
	DestinationRelational  DestinationKind = "relational"
	DestinationVectorStore DestinationKind = "vector"
	DestinationObjectStore DestinationKind = "object"
)

// VectorProvider picks the vector store behind a VectorStore destination
type VectorProvider string

const (
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderWeaviate VectorProvider = "weaviate"
)

// Node kinds, in the order the remote service executes them
const (
	NodeKindPartition = "partition"
	NodeKindChunk     = "chunk"
	NodeKindEnrich    = "enrich"
	NodeKindEmbed     = "embed"
)

const DefaultNamespace = "default"
