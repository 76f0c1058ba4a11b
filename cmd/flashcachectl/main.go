// Command flashcachectl is a thin HTTP client CLI for a flashcached node's
// admin surface: inspecting cluster state, forcing a snapshot, and managing
// its replication slave pool.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

const requestTimeout = 10 * time.Second

func main() {
	var addr string

	root := &cobra.Command{ //nolint:exhaustruct
		Use:   "flashcachectl",
		Short: "Control a flashcached node over its admin HTTP surface",
	}

	root.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "base URL of the node's admin HTTP surface")

	root.AddCommand(
		newInfoCmd(&addr),
		newKeysCmd(&addr),
		newSnapshotCmd(&addr),
		newSlavesCmd(&addr),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err) //nolint:forbidigo
		os.Exit(1)
	}
}

func newInfoCmd(addr *string) *cobra.Command {
	return &cobra.Command{ //nolint:exhaustruct
		Use:   "info",
		Short: "Show node identity, shard count, and replication status",
		RunE: func(_ *cobra.Command, _ []string) error {
			return doAndPrint(http.MethodGet, *addr+"/v1/info", nil)
		},
	}
}

func newKeysCmd(addr *string) *cobra.Command {
	var cursor string

	var limit int

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "keys",
		Short: "List live keys across every shard",
		RunE: func(_ *cobra.Command, _ []string) error {
			query := url.Values{}
			if cursor != "" {
				query.Set("cursor", cursor)
			}

			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			uri := *addr + "/v1/keys"
			if encoded := query.Encode(); encoded != "" {
				uri += "?" + encoded
			}

			return doAndPrint(http.MethodGet, uri, nil)
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor from a previous response")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of keys to return")

	return cmd
}

func newSnapshotCmd(addr *string) *cobra.Command {
	return &cobra.Command{ //nolint:exhaustruct
		Use:   "snapshot",
		Short: "Force every shard to persist itself to disk immediately",
		RunE: func(_ *cobra.Command, _ []string) error {
			return doAndPrint(http.MethodPost, *addr+"/v1/snapshot", nil)
		},
	}
}

func newSlavesCmd(addr *string) *cobra.Command {
	slaves := &cobra.Command{ //nolint:exhaustruct
		Use:   "slaves",
		Short: "Manage this node's replication slave pool",
	}

	var n int

	addCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "add",
		Short: "Spawn n new slave processes",
		RunE: func(_ *cobra.Command, _ []string) error {
			body, err := json.Marshal(map[string]int{"n": n})
			if err != nil {
				return fmt.Errorf("encode request body: %w", err)
			}

			return doAndPrint(http.MethodPost, *addr+"/v1/slaves", body)
		},
	}
	addCmd.Flags().IntVar(&n, "n", 1, "number of slave processes to spawn")

	var force bool

	removeCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "remove [id]",
		Short: "Stop a slave process",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			uri := *addr + "/v1/slaves/" + url.PathEscape(args[0])
			if force {
				uri += "?force=true"
			}

			return doAndPrint(http.MethodDelete, uri, nil)
		},
	}
	removeCmd.Flags().BoolVar(&force, "force", false, "also forget the slave after stopping it gracefully")

	cleanupCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "cleanup-zombies",
		Short: "Reap slave processes that have already exited on their own",
		RunE: func(_ *cobra.Command, _ []string) error {
			return doAndPrint(http.MethodPost, *addr+"/v1/slaves/cleanup-zombies", nil)
		},
	}

	slaves.AddCommand(addCmd, removeCmd, cleanupCmd)

	return slaves
}

func doAndPrint(method string, uri string, body []byte) error {
	client := &http.Client{Timeout: requestTimeout} //nolint:exhaustruct

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, uri, reqBody) //nolint:noctx
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, uri, err)
	}

	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	fmt.Println(string(respBody)) //nolint:forbidigo

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %s", method, uri, resp.Status) //nolint:err113
	}

	return nil
}
