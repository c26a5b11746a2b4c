package sqlutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInt64RoundTrip(t *testing.T) {
	assert.False(t, ToSqlInt64(nil).Valid)
	assert.Nil(t, FromSqlInt64(ToSqlInt64(nil)))

	n := int64(-3)
	got := FromSqlInt64(ToSqlInt64(&n))
	if assert.NotNil(t, got) {
		assert.Equal(t, n, *got)
	}
}

func TestTimeZeroIsNull(t *testing.T) {
	assert.False(t, ToSqlTime(time.Time{}).Valid)
	assert.True(t, FromSqlTime(ToSqlTime(time.Time{})).IsZero())

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, at, FromSqlTime(ToSqlTime(at)))
}
