package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsTypeAndPayload(t *testing.T) {
	e := NewReportEvent(ReportCompleted, "client-1", "r-1", "Hero")

	data, err := Encode(e)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ReportCompleted, decoded.EventType())
	assert.Equal(t, "client-1", decoded.Payload()["owner"])
	assert.Equal(t, "r-1", decoded.Payload()["report_id"])
	assert.True(t, e.Timestamp().Equal(decoded.Timestamp()))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}
