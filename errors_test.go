package disko_test

import (
	"testing"

	disko "github.com/dargueta/gofatx"
	"github.com/stretchr/testify/assert"
)

func TestDriverErrorDefaultMessage(t *testing.T) {
	newErr := disko.NewDriverError(disko.ENOENT)
	assert.Equal(t, disko.ENOENT.Error(), newErr.Error())
	assert.ErrorIs(t, newErr.ErrnoCode, disko.ENOENT)
}

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := disko.NewDriverErrorWithMessage(disko.EEXIST, "hello.txt")
	assert.Equal(t, disko.EEXIST.Error()+": hello.txt", newErr.Error())
	assert.Equal(t, disko.EEXIST, newErr.ErrnoCode)
}
