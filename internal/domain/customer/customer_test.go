package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	c := Customer{AccountNumber: "ACC-1001", Name: "Nimal Perera"}
	require.NoError(t, c.Validate())

	assert.Error(t, Customer{Name: "No Account"}.Validate())
	assert.Error(t, Customer{AccountNumber: "ACC-1002"}.Validate())
}
