package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dusk-indust/modgraph/internal/export"
	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/record"
	"github.com/dusk-indust/modgraph/internal/rpc"
)

// sourceFlags select where an offline command reads records from: a JSON
// file (or "-" for stdin) or a running modgraph server.
type sourceFlags struct {
	Records string
	Server  string
	Verbose bool
}

func (s *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.Records, "records", "", "records JSON file (array, export or snapshot); - for stdin")
	fs.StringVar(&s.Server, "server", "", "base URL of a running modgraph server, e.g. http://127.0.0.1:7070")
	fs.BoolVar(&s.Verbose, "verbose", false, "enable verbose output")
}

// load fetches records and builds their graphs.
func (s *sourceFlags) load(ctx context.Context) (record.Snapshot, graph.Graphs, error) {
	if !s.Verbose {
		log.SetOutput(io.Discard)
	}

	var snap record.Snapshot
	switch {
	case s.Server != "" && s.Records != "":
		return snap, nil, fmt.Errorf("--records and --server are mutually exclusive")

	case s.Server != "":
		client := rpc.NewHTTPClient(s.Server, rpc.WithTimeout(30*time.Second))
		remote, err := client.ListRecords(ctx)
		if err != nil {
			return snap, nil, err
		}
		snap = *remote

	case s.Records != "":
		var r io.Reader = os.Stdin
		if s.Records != "-" {
			f, err := os.Open(s.Records)
			if err != nil {
				return snap, nil, fmt.Errorf("open records: %w", err)
			}
			defer f.Close()
			r = f
		}
		records, err := export.ReadRecords(r)
		if err != nil {
			return snap, nil, err
		}
		snap.Records = records

	default:
		return snap, nil, fmt.Errorf("one of --records or --server is required")
	}

	graphs := graph.NewBuilder(graph.NewResolver(0)).Build(snap.Records)
	return snap, graphs, nil
}
