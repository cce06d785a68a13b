// Command genmock writes a reproducible fixture of synthetic incidents. It
// uses the generator package with a fixed seed and clock so the output only
// changes when the generator does, and prints routing stats useful for
// updating test assertions.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/incidents.json -count 200 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	"github.com/bless2804/CrisisOps-Mesh/internal/generator"
	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2025, time.September, 5, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the incident fixture")
	count := flag.Int("count", 100, "number of incidents to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *count < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -count > 0")
	}

	// A fake clock advanced per incident keeps timestamps reproducible.
	clock := clockwork.NewFakeClockAt(baseDate)
	gen := generator.New(clock, generator.DefaultSource, rand.New(rand.NewPCG(*seed, *seed)))

	incidents := make([]json.RawMessage, 0, *count)
	routed := make([]domain.Incident, 0, *count)
	for range *count {
		inc := gen.Next()
		clock.Advance(1500 * time.Millisecond)

		payload, err := domain.SerializeIncident(inc)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", inc.ID, err)
		}
		incidents = append(incidents, payload)
		routed = append(routed, domain.Classify(inc))
	}

	if err := writeJSON(*out, incidents); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d incidents)", *out, len(incidents))

	printStats(routed)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func printStats(incidents []domain.Incident) {
	types := map[string]int{}
	agencies := map[string]int{}
	fanout := map[string]int{}
	var publishes int
	for _, inc := range incidents {
		types[inc.Type]++
		fanout[fmt.Sprint(len(inc.AgencyTargets))]++
		for _, a := range inc.AgencyTargets {
			agencies[string(a)]++
			publishes++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d, publishes: %d\n", len(incidents), publishes)
	for _, group := range []struct {
		title  string
		counts map[string]int
	}{
		{"By type", types},
		{"By agency", agencies},
		{"Agencies per incident", fanout},
	} {
		fmt.Printf("%s:", group.title)
		for _, kc := range sortedCounts(group.counts) {
			fmt.Printf(" %s=%d", kc.key, kc.count)
		}
		fmt.Println()
	}
}
