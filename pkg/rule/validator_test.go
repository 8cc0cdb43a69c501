package rule_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/rule"
)

type part struct {
	PartNumber int    `json:"PartNumber" rule:"gte=1"`
	ETag       string `json:"ETag"       rule:"required"`
}

type request struct {
	FileID string `json:"file_id" rule:"required,fileid"`
	Size   int64  `json:"size"    rule:"gt=0"`
	Parts  []part `json:"parts"   rule:"required,min=1,dive"`
	Note   string `rule:"max=3"`
}

func TestEngine(t *testing.T) {
	assert.NotNil(t, rule.Engine())
	assert.Same(t, rule.Engine(), rule.Engine())
}

func TestValidateStruct(t *testing.T) {
	ok := request{FileID: "f-1", Size: 1, Parts: []part{{PartNumber: 1, ETag: "e"}}}
	require.NoError(t, rule.ValidateStruct(ok))

	bad := request{FileID: "", Size: 0, Parts: []part{{PartNumber: 0, ETag: ""}}, Note: "toolong"}

	err := rule.ValidateStruct(bad)
	require.Error(t, err)

	var errs rule.Errors
	require.True(t, errors.As(err, &errs))

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fe.Field)
	}

	assert.ElementsMatch(t, []string{"file_id", "size", "parts[0].PartNumber", "parts[0].ETag", "Note"}, fields)
	assert.Contains(t, err.Error(), "size: gt=0")
	assert.Contains(t, err.Error(), "file_id: required")
}

func TestFileID(t *testing.T) {
	cases := map[string]bool{
		"01J9ZK3Q2V8R6Y":         true,
		"b6f3c3c4-uuid":          true,
		"report.v2.final":        true,
		"":                       false,
		".":                      false,
		"..":                     false,
		"a/b":                    false,
		`a\b`:                    false,
		"tab\tid":                false,
		strings.Repeat("x", 64):  true,
		strings.Repeat("x", 65):  false,
	}

	for id, want := range cases {
		err := rule.ValidateVar(id, "fileid")
		assert.Equal(t, want, err == nil, "%q", id)
	}
}

func TestObjectKey(t *testing.T) {
	assert.NoError(t, rule.ValidateVar("uploads/alice/f1/report.pdf", "objectkey"))
	assert.Error(t, rule.ValidateVar("/abs/key", "objectkey"))
	assert.Error(t, rule.ValidateVar("", "objectkey"))
	assert.Error(t, rule.ValidateVar("a\nb", "objectkey"))
	assert.Error(t, rule.ValidateVar(strings.Repeat("k", 1025), "objectkey"))
}

func TestValidateVarError(t *testing.T) {
	err := rule.ValidateVar(15, "gte=18")
	require.Error(t, err)
	assert.Equal(t, "gte=18", err.Error())
}

func TestRegisterValidationAndAlias(t *testing.T) {
	require.NoError(t, rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}))

	assert.NoError(t, rule.ValidateVar("test", "even_length"))
	assert.Error(t, rule.ValidateVar("test1", "even_length"))

	rule.RegisterAlias("short_name", "required,min=3")
	assert.NoError(t, rule.ValidateVar("abc", "short_name"))
	assert.Error(t, rule.ValidateVar("ab", "short_name"))
}
