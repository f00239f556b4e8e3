package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceLocation(t *testing.T) {
	t.Run("prefix", func(t *testing.T) {
		loc, err := ParseSourceLocation("s3://bucket/clients/acme/")
		require.NoError(t, err)

		assert.Equal(t, "s3", loc.Scheme)
		assert.Equal(t, "bucket", loc.Bucket)
		assert.Equal(t, []string{"clients", "acme"}, loc.Segments)
		assert.Equal(t, "clients/acme/", loc.Key())
		assert.True(t, loc.IsPrefix())
	})

	t.Run("single file", func(t *testing.T) {
		loc, err := ParseSourceLocation("s3://bucket/reports/q1.pdf")
		require.NoError(t, err)

		assert.Equal(t, "reports/q1.pdf", loc.Key())
		assert.False(t, loc.IsPrefix())
	})

	t.Run("bucket only", func(t *testing.T) {
		loc, err := ParseSourceLocation("s3://bucket")
		require.NoError(t, err)

		assert.Empty(t, loc.Segments)
		assert.Equal(t, "", loc.Key())
		assert.True(t, loc.IsPrefix())
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		loc, err := ParseSourceLocation("S3://bucket/a/")
		require.NoError(t, err)
		assert.Equal(t, "s3", loc.Scheme)
	})

	for _, raw := range []string{"", "   ", "bucket/path", "https://bucket/path", "s3:///path", "gs://bucket/path"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseSourceLocation(raw)
			assert.Error(t, err)
		})
	}
}

func TestWorkflowSpecWithConnectors(t *testing.T) {
	spec := WorkflowSpec{
		Name:  "wf",
		Nodes: []Node{{Name: "partitioner", Kind: "partition"}, {Name: "chunker", Kind: "chunk"}},
	}

	bound := spec.WithConnectors("src-1", "dst-1")

	assert.Equal(t, "src-1", bound.SourceConnectorRef)
	assert.Equal(t, "dst-1", bound.DestinationConnectorRef)
	assert.Equal(t, []string{"partition", "chunk"}, bound.NodeKinds())
	assert.Empty(t, spec.SourceConnectorRef, "original spec must be left untouched")

	bound.Nodes[0].Name = "changed"
	assert.Equal(t, "partitioner", spec.Nodes[0].Name)
}

func TestRemoteJobErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", RemoteJob{Status: "FAILED", Error: "boom", Message: "other"}.ErrorMessage())
	assert.Equal(t, "other", RemoteJob{Status: "FAILED", Message: "other"}.ErrorMessage())
	assert.Equal(t, "job reported status FAILED", RemoteJob{Status: "FAILED"}.ErrorMessage())
}
