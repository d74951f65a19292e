package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpen_RejectsEmptyDSN(t *testing.T) {
	_, err := Open("", Options{})
	assert.Error(t, err)
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{MaxOpenConns: 5}.withDefaults()

	assert.Equal(t, 10, o.MaxIdleConns)
	assert.Equal(t, 5, o.MaxOpenConns)
	assert.Equal(t, time.Hour, o.ConnMaxLifetime)
}
