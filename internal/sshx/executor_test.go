package sshx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ilokitv/botSTORE/internal/models"
)

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "Akun dibuat", StripANSI("\x1b[32mAkun dibuat\x1b[0m"))
	assert.Equal(t, "plain", StripANSI("plain"))
	assert.Equal(t, "", StripANSI(""))
	assert.Equal(t, "a b", StripANSI("\x1b[1;31ma\x1b[0m \x1b[0;32mb\x1b[0m"))
}

func TestRunUnreachableHost(t *testing.T) {
	e := &Executor{Timeout: 200 * time.Millisecond}

	// TEST-NET-1, соединение гарантированно не установится
	res := e.Run(models.VPS{
		Host:     "192.0.2.1",
		Username: "root",
		Password: "secret",
	}, "whoami")

	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Output)
}
