package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
)

// Chunking parameters shared by every workflow
const (
	chunkMaxCharacters    = 5500
	chunkNewAfterNChars   = 3500
	chunkCombineUnderN    = 3000
	chunkOverlap          = 350
	embedBatchSize        = 100
	splitPDFConcurrency   = 15
	partitionerSubtype    = "unstructured_api"
	vlmPartitionerSubtype = "vlm"
)

// metadataIncludes are the element metadata fields kept by the partitioner
var metadataIncludes = []string{
	"id", "element_id", "text", "embeddings", "type", "system", "layout_width",
	"layout_height", "points", "url", "version", "date_created", "date_modified",
	"date_processed", "permissions_data", "record_locator", "category_depth",
	"parent_id", "attached_filename", "filetype", "last_modified", "file_directory",
	"filename", "languages", "page_number", "links", "page_name", "link_urls",
	"link_texts", "sent_from", "sent_to", "subject", "section", "header_footer_type",
	"emphasized_text_contents", "emphasized_text_tags", "text_as_html", "regex_metadata",
	"detection_class_prob",
}

// PipelineOptions are the model choices applied to enrich and embed nodes
type PipelineOptions struct {
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	EnrichmentModel    string
}

// BuildWorkflow derives the workflow for req. Node order is
// partition, chunk, then enrich and embed when they apply.
func BuildWorkflow(req ProcessingRequest, opts PipelineOptions, now time.Time) models.WorkflowSpec {
	strategy, _ := defines.ParseStrategy(string(req.Strategy))
	chunking, _ := defines.ParseChunkingStrategy(string(req.ChunkingStrategy))

	nodes := []models.Node{partitionNode(strategy), chunkNode(chunking)}
	if req.Enrich {
		nodes = append(nodes, enrichNodes(opts)...)
	}
	if req.Destination != nil && req.Destination.RequiresEmbedding() {
		nodes = append(nodes, embedNode(opts))
	}

	kind := "ingest"
	if req.Destination != nil {
		kind = string(req.Destination.Kind())
	}

	return models.WorkflowSpec{
		Name:  workflowName(kind, now),
		Nodes: nodes,
	}
}

func workflowName(kind string, now time.Time) string {
	return fmt.Sprintf("ingest-%s-%s-%s", kind, now.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

func partitionNode(strategy defines.Strategy) models.Node {
	subtype := partitionerSubtype
	if strategy == defines.StrategyVLM {
		subtype = vlmPartitionerSubtype
	}
	return models.Node{
		Name:    "Partitioner",
		Kind:    defines.NodeKindPartition,
		Subtype: subtype,
		Settings: map[string]any{
			"strategy":                    string(strategy),
			"infer_table_structure":       true,
			"pdf_infer_table_structure":   true,
			"extract_image_block_types":   []string{"Image", "Table"},
			"languages":                   []string{"eng"},
			"include_page_breaks":         true,
			"unique_element_ids":          true,
			"split_pdf_page":              true,
			"split_pdf_allow_failed":      true,
			"split_pdf_concurrency_level": splitPDFConcurrency,
			"metadata_includes":           metadataIncludes,
		},
	}
}

func chunkNode(chunking defines.ChunkingStrategy) models.Node {
	settings := map[string]any{
		"max_characters":        chunkMaxCharacters,
		"new_after_n_chars":     chunkNewAfterNChars,
		"overlap":               chunkOverlap,
		"overlap_all":           true,
		"include_orig_elements": true,
	}
	if chunking == defines.ChunkByTitle {
		settings["combine_text_under_n_chars"] = chunkCombineUnderN
		settings["multipage_sections"] = true
	}
	return models.Node{
		Name:     "Chunker",
		Kind:     defines.NodeKindChunk,
		Subtype:  "chunk_" + string(chunking),
		Settings: settings,
	}
}

func enrichNodes(opts PipelineOptions) []models.Node {
	return []models.Node{
		{
			Name:     "Image summarizer",
			Kind:     defines.NodeKindEnrich,
			Subtype:  "openai_image_description",
			Settings: map[string]any{"model": opts.EnrichmentModel},
		},
		{
			Name:    "Table summarizer",
			Kind:    defines.NodeKindEnrich,
			Subtype: "openai_table_description",
			Settings: map[string]any{
				"model":         opts.EnrichmentModel,
				"output_format": "html",
			},
		},
	}
}

func embedNode(opts PipelineOptions) models.Node {
	return models.Node{
		Name:    "Embedder",
		Kind:    defines.NodeKindEmbed,
		Subtype: opts.EmbeddingProvider,
		Settings: map[string]any{
			"model_name": opts.EmbeddingModel,
			"dimensions": opts.EmbeddingDimension,
			"batch_size": embedBatchSize,
		},
	}
}

// sourceConnector is the create-source body for an S3 location
func sourceConnector(name string, req ProcessingRequest) models.ConnectorConfig {
	return models.ConnectorConfig{
		Name: name,
		Type: "s3",
		Config: map[string]any{
			"remote_url": req.SourceLocation,
			"key":        req.SourceCredentials.AccessKey,
			"secret":     req.SourceCredentials.SecretKey,
			"recursive":  true,
		},
	}
}
