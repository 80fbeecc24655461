package main

import (
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

var watchAPI string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print ranking.rebuilt events from a running api-server",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAPI, "api", defaultBaseURL, "API base URL")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	wsURL, err := websocketURL(watchAPI, "/ws")
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	logger.Sugar().Infof("connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(msg))
	}
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
