package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func waCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wa",
		Short: "Manage a tenant's WhatsApp channel",
	}
	cmd.AddCommand(waStatusCmd())
	cmd.AddCommand(waConnectCmd())
	cmd.AddCommand(waDisconnectCmd())
	cmd.AddCommand(waSendCmd())
	return cmd
}

func waStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <tenant-slug>",
		Short: "Show the channel status",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			body := apiCall(http.MethodGet, "/api/whatsapp/status", args[0], nil)
			var snap struct {
				Status string `json:"status"`
				QR     string `json:"qr"`
			}
			if err := json.Unmarshal(body, &snap); err != nil {
				fail("unexpected response: %s", err)
			}
			fmt.Println(snap.Status)
			if snap.QR != "" {
				fmt.Println("pairing image available; open the settings page to scan it")
			}
		},
	}
}

func waConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <tenant-slug>",
		Short: "Start the channel (shows a QR code on first pairing)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			body := apiCall(http.MethodPost, "/api/whatsapp/connect", args[0], nil)
			fmt.Println(string(bytes.TrimSpace(body)))
		},
	}
}

func waDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <tenant-slug>",
		Short: "Log the channel out and tear it down",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			apiCall(http.MethodPost, "/api/whatsapp/disconnect", args[0], nil)
			fmt.Println("disconnected")
		},
	}
}

func waSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <tenant-slug> <phone> <message>",
		Short: "Send a test message through the tenant's channel",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			payload, _ := json.Marshal(map[string]string{
				"phone":   args[1],
				"message": args[2],
			})
			body := apiCall(http.MethodPost, "/api/whatsapp/send", args[0], payload)
			var resp struct {
				Delivered bool `json:"delivered"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				fail("unexpected response: %s", err)
			}
			if !resp.Delivered {
				fail("message was not delivered; check the server log")
			}
			fmt.Println("delivered")
		},
	}
}

// apiCall hits the running server, exiting on any failure. Operator
// commands are thin clients; all state lives in the serve process.
func apiCall(method, path, tenant string, payload []byte) []byte {
	cfg := loadConfig()
	url := "http://" + cfg.Server.Listen + path

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		fail("%s", err)
	}
	req.Header.Set("X-Tenant", tenant)
	if cfg.Server.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Server.Token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fail("server unreachable at %s (is `vendazap serve` running?): %s", cfg.Server.Listen, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		fail("%s %s: %s", method, path, bytes.TrimSpace(body))
	}
	return body
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
