package notify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFanout_DeliversInOrder(t *testing.T) {
	var got []string
	sink := func(name string) Sink {
		return SinkFunc(func(n Notification) { got = append(got, name+":"+n.Message) })
	}

	Fanout{sink("ui"), LogSink{}, sink("audit")}.Notify(Notification{
		Severity: SeverityInfo,
		Message:  "funds requested",
		Timeout:  DefaultTimeout,
	})

	assert.Equal(t, []string{"ui:funds requested", "audit:funds requested"}, got)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zerolog.ErrorLevel, levelFor(SeverityError))
	assert.Equal(t, zerolog.WarnLevel, levelFor(SeverityWarning))
	assert.Equal(t, zerolog.InfoLevel, levelFor(SeverityInfo))
	assert.Equal(t, zerolog.InfoLevel, levelFor(SeverityWin))
}
