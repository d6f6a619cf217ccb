package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/higherorderfunctor/snmp-stream/collect"
	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/resultbuf"
	"github.com/higherorderfunctor/snmp-stream/manager"
	"github.com/higherorderfunctor/snmp-stream/transport"
)

var (
	flagCommunity string
	flagVersion   string
	flagRetries   int
	flagTimeout   int
	flagBatchSize int
	flagVerbose   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snmpwalk",
		Short: "Bulk SNMP v1/v2c collection engine",
		Long:  "snmpwalk drives the collection engine's session scheduler against a single host, one GET or WALK request at a time.",
	}

	root.PersistentFlags().StringVarP(&flagCommunity, "community", "c", "public", "SNMP community string")
	root.PersistentFlags().StringVarP(&flagVersion, "version", "v", "2c", "SNMP version: 1 or 2c")
	root.PersistentFlags().IntVar(&flagRetries, "retries", 3, "retries per PDU exchange")
	root.PersistentFlags().IntVar(&flagTimeout, "timeout", 3, "per-attempt timeout in seconds")
	root.PersistentFlags().IntVar(&flagBatchSize, "batch-size", 10, "max var-binds per PDU")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	root.AddCommand(newGetCmd())
	root.AddCommand(newWalkCmd())
	return root
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <host> <oid> [oid...]",
		Short: "Fetch exact OIDs from a host",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollection(collect.GET, args[0], args[1:])
		},
	}
}

func newWalkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "walk <host> <root-oid> [root-oid...]",
		Short: "Walk subtrees rooted at the given OIDs",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollection(collect.WALK, args[0], args[1:])
		},
	}
}

func runCollection(typ collect.Type, host string, rawOIDs []string) error {
	log := newLogger()

	roots := make([]oid.OID, len(rawOIDs))
	for i, raw := range rawOIDs {
		o, err := parseOID(raw)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", raw, err)
		}
		roots[i] = o
	}

	version := transport.V2C
	if flagVersion == "1" {
		version = transport.V1
	}
	community := collect.Community{String: flagCommunity, Version: version}

	retries, timeout, batch := flagRetries, flagTimeout, flagBatchSize
	cfg := collect.Config{Retries: &retries, TimeoutSeconds: &timeout, MaxResponseVarBindsPerPDU: &batch}

	req, err := collect.New(typ, host, community, roots, nil, "", cfg)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	tp := transport.NewGoSNMPTransport()
	mgr := manager.New(tp, manager.WithLogger(log))
	mgr.AddRequest(req)

	for mgr.PendingCount() > 0 || mgr.ActiveCount() > 0 {
		for _, resp := range mgr.Run() {
			printResponse(resp)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func printResponse(resp collect.Response) {
	decoded, err := resultbuf.Parse(resp.Results)
	if err != nil {
		fmt.Printf("# error decoding result buffer: %v\n", err)
		return
	}
	for _, rec := range decoded.Records {
		root := decoded.Roots[rec.RootIndex]
		full := root.Concat(oid.New(rec.IndexTail...))
		fmt.Printf("%s = %q\n", full, rec.Value)
	}
	for _, e := range resp.Errors {
		fmt.Printf("# %s: %s\n", e.Kind, e.Message)
	}
	fmt.Printf("# %s %s\n", resp.Request.Host, resp.Kind)
}

func newLogger() *logrus.Entry {
	l := logrus.New()
	if flagVerbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(l)
}

func parseOID(s string) (oid.OID, error) {
	s = strings.TrimPrefix(s, ".")
	parts := strings.Split(s, ".")
	ids := make([]oid.SubID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return oid.OID{}, fmt.Errorf("invalid sub-identifier %q", p)
		}
		ids = append(ids, oid.SubID(n))
	}
	return oid.New(ids...), nil
}
