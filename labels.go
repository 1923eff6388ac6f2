package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// LabelMap is the per-run bijection between anonymized labels ("Response 1",
// "Response 2", ...) and the council models that produced a successful Stage 1
// response. It is rebuilt for every run and never reused or persisted, so a
// judge cannot learn the mapping across runs.
type LabelMap struct {
	labelToModel map[string]string
	modelToLabel map[string]string
	labels       []string // assignment order, "Response 1" first
}

// NewLabelMap assigns labels to the given Stage 1 responses in a freshly
// shuffled order. The shuffle keeps label positions independent of the
// configured model order, so neither the roster nor the model name can be
// inferred from a label.
func NewLabelMap(responses []Stage1Response) *LabelMap {
	shuffled := make([]Stage1Response, len(responses))
	copy(shuffled, responses)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	lm := &LabelMap{
		labelToModel: make(map[string]string, len(shuffled)),
		modelToLabel: make(map[string]string, len(shuffled)),
		labels:       make([]string, 0, len(shuffled)),
	}
	for i, r := range shuffled {
		label := fmt.Sprintf("Response %d", i+1)
		lm.labelToModel[label] = r.Model
		lm.modelToLabel[r.Model] = label
		lm.labels = append(lm.labels, label)
	}
	return lm
}

// Len returns the number of label assignments.
func (lm *LabelMap) Len() int {
	return len(lm.labels)
}

// ModelFor resolves a label back to its model identifier.
func (lm *LabelMap) ModelFor(label string) (string, bool) {
	model, ok := lm.labelToModel[label]
	return model, ok
}

// LabelFor returns the label assigned to a model.
func (lm *LabelMap) LabelFor(model string) (string, bool) {
	label, ok := lm.modelToLabel[model]
	return label, ok
}

// Labels returns the labels in assignment order.
func (lm *LabelMap) Labels() []string {
	labels := make([]string, len(lm.labels))
	copy(labels, lm.labels)
	return labels
}

// Models returns the mapped model identifiers in lexical order.
func (lm *LabelMap) Models() []string {
	models := make([]string, 0, len(lm.modelToLabel))
	for model := range lm.modelToLabel {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// ToMap returns label -> model for persistence and de-anonymization in the UI.
func (lm *LabelMap) ToMap() map[string]string {
	m := make(map[string]string, len(lm.labelToModel))
	for label, model := range lm.labelToModel {
		m[label] = model
	}
	return m
}

// RenderAnonymized renders the labeled response block shown to judges.
// Only labels appear; model identifiers never do.
func (lm *LabelMap) RenderAnonymized(responses []Stage1Response) string {
	textByModel := make(map[string]string, len(responses))
	for _, r := range responses {
		textByModel[r.Model] = r.Response
	}

	var b strings.Builder
	for _, label := range lm.labels {
		model := lm.labelToModel[label]
		b.WriteString(fmt.Sprintf("%s:\n%s\n\n", label, textByModel[model]))
	}
	return b.String()
}
