// breakersim is a tool to verify circuit breaker behavior in the
// circuit guard service by driving traffic through it while the
// upstream fails, and watching the state transitions.
//
// Usage:
//
//	go run breakersim.go -guard http://localhost:8080 -upstream-port 8081
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		guardURL     = flag.String("guard", "http://localhost:8080", "Circuit guard URL")
		upstreamPort = flag.Int("upstream-port", 8081, "Upstream port to kill for testing")
		requests     = flag.Int("requests", 20, "Requests per phase")
		sleepWindow  = flag.Duration("sleep-window", 3*time.Second, "Configured sleep window to wait out")
		skipKill     = flag.Bool("skip-kill", false, "Skip the kill upstream phase")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║              CIRCUIT BREAKER SIMULATION                        ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Verify normal operation
	fmt.Println(colorBlue + "━━━ PHASE 1: Normal Operation ━━━" + colorReset)
	fmt.Println("Sending requests to verify the circuit stays closed...")

	stateHits := make(map[string]int)
	successCount := 0
	for i := 0; i < *requests; i++ {
		status, state, err := sendRequest(client, *guardURL)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		stateHits[state]++
		if status < 500 {
			successCount++
		} else {
			fmt.Printf(colorRed+"  Request %d: Status=%d State=%s\n"+colorReset, i+1, status, state)
		}
	}

	fmt.Println("\n  Circuit state distribution:")
	for state, count := range stateHits {
		fmt.Printf("    %s → %d responses\n", state, count)
	}
	if successCount == 0 {
		fmt.Println(colorRed + "  ✗ No successful responses! Is the circuit guard running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Normal operation verified" + colorReset)
	fmt.Println()

	// PHASE 2: Kill the upstream and watch the circuit trip
	if !*skipKill {
		fmt.Println(colorBlue + "━━━ PHASE 2: Upstream Failure & Circuit Trip ━━━" + colorReset)
		fmt.Printf("Killing upstream on port %d...\n", *upstreamPort)

		if err := killUpstream(*upstreamPort); err != nil {
			fmt.Printf(colorYellow+"  Warning: Could not kill upstream: %v\n"+colorReset, err)
		} else {
			fmt.Printf(colorGreen+"  ✓ Upstream on port %d killed\n"+colorReset, *upstreamPort)
		}

		time.Sleep(500 * time.Millisecond)

		fmt.Println("\n  Sending requests (circuit should open once the threshold is crossed)...")
		tripped := false
		for i := 0; i < *requests; i++ {
			status, state, err := sendRequest(client, *guardURL)
			if err != nil {
				fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
				continue
			}
			fmt.Printf("  Request %d: Status=%d State=%s\n", i+1, status, state)
			if state == "OPEN" && !tripped {
				tripped = true
				fmt.Printf(colorGreen+"  ✓ Circuit opened after %d requests\n"+colorReset, i+1)
			}
		}

		if !tripped {
			fmt.Println(colorYellow + "  ⚠ Circuit never opened (threshold not reached? fallback masking failures?)" + colorReset)
		}
		fmt.Println()

		// PHASE 3: Wait out the sleep window and watch the probe
		fmt.Println(colorBlue + "━━━ PHASE 3: Sleep Window & Probe ━━━" + colorReset)
		fmt.Printf("Waiting %s for the sleep window to elapse...\n", *sleepWindow)
		time.Sleep(*sleepWindow + 500*time.Millisecond)

		status, state, err := sendRequest(client, *guardURL)
		if err != nil {
			fmt.Printf(colorRed+"  Probe request: ERROR - %v\n"+colorReset, err)
		} else {
			fmt.Printf("  Probe request: Status=%d State=%s\n", status, state)
			switch state {
			case "CLOSED":
				fmt.Println(colorGreen + "  ✓ Probe succeeded, circuit closed again" + colorReset)
			case "OPEN":
				fmt.Println(colorYellow + "  ⚠ Probe failed, circuit reopened (upstream still down?)" + colorReset)
			case "HALF-OPEN":
				fmt.Println(colorYellow + "  ⚠ Circuit still half-open" + colorReset)
			}
		}
		fmt.Println()
	}

	// PHASE 4: Check circuit and metrics endpoints
	fmt.Println(colorBlue + "━━━ PHASE 4: Circuit & Metrics Status ━━━" + colorReset)
	fmt.Println("Checking /circuits endpoint...")

	circuits, err := fetchJSON(client, *guardURL+"/circuits")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch circuits: %v\n"+colorReset, err)
	} else {
		fmt.Println("\n  Circuit status:")
		for key, data := range circuits {
			if cs, ok := data.(map[string]interface{}); ok {
				state, _ := cs["state"].(string)
				total := int(cs["total_calls"].(float64))
				errs := int(cs["error_calls"].(float64))
				colored := colorGreen + state + colorReset
				if state == "OPEN" {
					colored = colorRed + state + colorReset
				}
				fmt.Printf("    %s → %s (calls: %d, errors: %d)\n", key, colored, total, errs)
			}
		}
	}

	fmt.Println("\nChecking /metrics endpoint...")
	metrics, err := fetchJSON(client, *guardURL+"/metrics")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch metrics: %v\n"+colorReset, err)
	} else {
		if commands, ok := metrics["commands"].(map[string]interface{}); ok {
			for key, data := range commands {
				if cm, ok := data.(map[string]interface{}); ok {
					fmt.Printf("    %s → executions: %v, failures: %v, rejections: %v, fallbacks: %v\n",
						key, cm["executions"], cm["failures"], cm["rejections"], cm["fallbacks"])
				}
			}
		}
	}
	fmt.Println()

	// Summary
	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                  SIMULATION COMPLETE                           ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()
	fmt.Println("Key behaviors exercised:")
	fmt.Println("  1. Closed circuit passing traffic through")
	fmt.Println("  2. Circuit opening once the error threshold is crossed")
	fmt.Println("  3. Half-open probe after the sleep window")
	fmt.Println("  4. Circuit state and metrics reporting")
	fmt.Println()
	fmt.Println("Check circuit guard logs for detailed command activity.")
}

func sendRequest(client *http.Client, url string) (int, string, error) {
	resp, err := client.Get(url + "/")
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Header.Get("X-Circuit-State"), nil
}

func killUpstream(port int) error {
	cmd := exec.Command("lsof", "-ti", fmt.Sprintf(":%d", port))
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("no process found on port %d", port)
	}

	pid := strings.TrimSpace(string(output))
	if pid == "" {
		return fmt.Errorf("no process found on port %d", port)
	}

	killCmd := exec.Command("kill", pid)
	return killCmd.Run()
}

func fetchJSON(client *http.Client, url string) (map[string]interface{}, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}

	return decoded, nil
}
