package bondtrack

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// TargetNames maps model class names to the TargetKind they represent
type TargetNames map[string]TargetKind

// DefaultTargetNames are the class names used by the bonder detection model
var DefaultTargetNames = TargetNames{
	"bonder_tip": Tip,
	"gold_reel":  Reel,
}

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return labels, nil
}

// Resolver maps a model class id to the TargetKind it represents
type Resolver struct {
	kinds  map[int]TargetKind
	labels []string
}

// ResolveTargets builds a Resolver by matching the model labels against the
// given names, case insensitive.  Labels without a matching name are left
// unresolved and their detections ignored.
func ResolveTargets(labels []string, names TargetNames) (*Resolver, error) {

	if len(labels) == 0 {
		return nil, ErrNoLabels
	}

	lookup := make(map[string]TargetKind, len(names))

	for name, kind := range names {
		lookup[strings.ToLower(strings.TrimSpace(name))] = kind
	}

	r := &Resolver{
		kinds:  make(map[int]TargetKind),
		labels: labels,
	}

	for id, label := range labels {
		if kind, ok := lookup[strings.ToLower(strings.TrimSpace(label))]; ok {
			r.kinds[id] = kind
		}
	}

	return r, nil
}

// Resolve returns the TargetKind for the class id, false if the class is not
// one of the watched targets
func (r *Resolver) Resolve(classID int) (TargetKind, bool) {
	kind, ok := r.kinds[classID]
	return kind, ok
}

// Label returns the model label for the class id
func (r *Resolver) Label(classID int) string {

	if classID < 0 || classID >= len(r.labels) {
		return fmt.Sprintf("class-%d", classID)
	}

	return r.labels[classID]
}

// Missing returns the TargetKinds that no model label resolves to
func (r *Resolver) Missing() []TargetKind {

	var found [NumTargets]bool

	for _, kind := range r.kinds {
		found[kind] = true
	}

	var missing []TargetKind

	for _, kind := range TargetKinds {
		if !found[kind] {
			missing = append(missing, kind)
		}
	}

	return missing
}
