package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendata-madrid/places-cli/internal/catalog"
)

func TestFormatCategoryList(t *testing.T) {
	var buf bytes.Buffer
	formatCategoryList(&buf, catalog.Default().Categories)

	output := buf.String()
	assert.Contains(t, output, "CODE")
	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "TAXONOMY")
	assert.Contains(t, output, "16032")
	assert.Contains(t, output, "parque")
	assert.Contains(t, output, "13065")
	assert.Contains(t, output, "restaurante")
	assert.Contains(t, output, "Landmarks and Outdoors > Park")
}

func TestFormatCategoryList_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatCategoryList(&buf, nil)

	output := buf.String()
	assert.Contains(t, output, "CODE")
	assert.NotContains(t, output, "16032")
}
