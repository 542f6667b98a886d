package support

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswer(t *testing.T) {
	assert.Equal(t, "Shipping usually takes 3-5 business days.", Answer("Shipping"))
	assert.Equal(t, "You can return items within 30 days of purchase.", Answer(" returns "))
	assert.Equal(t, "Sorry, I do not have an answer for that.", Answer("warranty"))
	assert.Equal(t, "Sorry, I do not have an answer for that.", Answer(""))
}

func TestSystemStatus(t *testing.T) {
	status := SystemStatus()
	assert.Len(t, status, 12)
	for _, s := range status {
		assert.Equal(t, "Healthy", s)
	}
}

func TestLogs(t *testing.T) {
	assert.Equal(t, "Logs for cartservice: [Simulated log output]", Logs("cartservice"))
}
