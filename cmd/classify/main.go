// Command classify routes a file of incidents offline and prints, for each
// one, the agencies it would reach, the rules that fired, and the outbound
// topics it would be published to. No broker is contacted.
//
// Usage:
//
//	go run ./cmd/classify -in incidents.json -pretty
//	cat incidents.json | go run ./cmd/classify
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

type routed struct {
	Incident json.RawMessage `json:"incident"`
	Agencies []domain.Agency `json:"agencies"`
	Trace    []string        `json:"trace"`
	Topics   []string        `json:"topics"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	in := fs.String("in", "", "path to a JSON array of incidents (default stdin)")
	namespace := fs.String("agency-namespace", domain.DefaultAgencyNamespace, "outbound topic root")
	pretty := fs.Bool("pretty", false, "indent output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := readInput(*in, stdin)
	if err != nil {
		return err
	}

	out, err := classifyAll(data, *namespace)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// classifyAll routes every element of a JSON array. Elements that are not
// objects are reported on stderr and skipped.
func classifyAll(data []byte, namespace string) ([]routed, error) {
	doc := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !doc.IsArray() {
		return nil, errors.New("input must be a JSON array of incidents")
	}

	out := make([]routed, 0, len(doc.Array()))
	for i, elem := range doc.Array() {
		inc, err := domain.ParseIncident([]byte(elem.Raw))
		if err != nil {
			log.Printf("skipping element %d: %v", i, err)
			continue
		}

		inc = domain.Classify(inc)
		payload, err := domain.SerializeIncident(inc)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		topics := make([]string, len(inc.AgencyTargets))
		for j, a := range inc.AgencyTargets {
			topics[j] = domain.OutboundTopic(namespace, a, inc.Region(), inc.Kind(), inc.Level())
		}

		out = append(out, routed{
			Incident: payload,
			Agencies: inc.AgencyTargets,
			Trace:    domain.Trace(inc),
			Topics:   topics,
		})
	}
	return out, nil
}
