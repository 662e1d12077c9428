package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"missionledger/crypto"
)

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("MISSIONLEDGER_RPC_TOKEN")

func defaultRPCEndpoint() string {
	if url := strings.TrimSpace(os.Getenv("RPC_URL")); url != "" {
		return url
	}
	return "http://localhost:8645"
}

func main() {
	args := os.Args[1:]
	args = applyGlobalFlags(args)

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	args = args[1:]
	var err error
	switch command {
	case "generate-key":
		err = generateKey(args)
	case "create-mission":
		err = createMission(args)
	case "distribute":
		err = distribute(args)
	case "finalize":
		err = requireArgs(args, 2, func() error {
			id, convErr := strconv.ParseUint(args[1], 10, 64)
			if convErr != nil {
				return fmt.Errorf("invalid mission id: %w", convErr)
			}
			return call("missions_finalize", map[string]interface{}{"caller": args[0], "missionId": id}, true)
		})
	case "get-mission":
		err = withMissionID(args, "missions_get")
	case "mission-count":
		err = call("missions_count", nil, false)
	case "is-active":
		err = withMissionID(args, "missions_isActive")
	case "add-token":
		err = tokenMutation(args, "missions_addAllowedToken")
	case "remove-token":
		err = tokenMutation(args, "missions_removeAllowedToken")
	case "is-token-allowed":
		err = requireArgs(args, 1, func() error {
			return call("missions_isTokenAllowed", map[string]string{"tokenAddress": args[0]}, false)
		})
	case "owner":
		err = call("missions_getContractOwner", nil, false)
	case "distributor":
		err = call("missions_getRewardDistributor", nil, false)
	case "set-distributor":
		err = requireArgs(args, 2, func() error {
			return call("missions_setRewardDistributor", map[string]string{"caller": args[0], "distributor": args[1]}, true)
		})
	case "award":
		err = award(args)
	case "user-points":
		err = requireArgs(args, 1, func() error {
			return call("points_userPoints", map[string]string{"address": args[0]}, false)
		})
	case "achievements":
		err = requireArgs(args, 1, func() error {
			return call("points_userAchievements", map[string]string{"address": args[0]}, false)
		})
	case "achievement":
		err = requireArgs(args, 1, func() error {
			id, convErr := strconv.ParseUint(args[0], 10, 32)
			if convErr != nil {
				return fmt.Errorf("invalid achievement id: %w", convErr)
			}
			return call("points_getAchievement", map[string]uint64{"achievementId": id}, false)
		})
	case "multiplier":
		err = call("points_getGlobalMultiplier", nil, false)
	case "set-multiplier":
		err = requireArgs(args, 2, func() error {
			value, convErr := strconv.ParseUint(args[1], 10, 64)
			if convErr != nil {
				return fmt.Errorf("invalid multiplier: %w", convErr)
			}
			return call("points_setGlobalMultiplier", map[string]interface{}{"caller": args[0], "value": value}, true)
		})
	case "total-issued":
		err = call("points_totalIssued", nil, false)
	case "add-issuer":
		err = issuerMutation(args, "points_addIssuer")
	case "remove-issuer":
		err = issuerMutation(args, "points_removeIssuer")
	case "is-issuer":
		err = requireArgs(args, 1, func() error {
			return call("points_isIssuer", map[string]string{"issuer": args[0]}, false)
		})
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func applyGlobalFlags(args []string) []string {
	out := args[:0]
	for i := 0; i < len(args); i++ {
		if args[i] == "--rpc" && i+1 < len(args) {
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}

func requireArgs(args []string, n int, fn func() error) error {
	if len(args) < n {
		printUsage()
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return fn()
}

func withMissionID(args []string, method string) error {
	return requireArgs(args, 1, func() error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid mission id: %w", err)
		}
		return call(method, map[string]uint64{"missionId": id}, false)
	})
}

func tokenMutation(args []string, method string) error {
	return requireArgs(args, 2, func() error {
		return call(method, map[string]string{"caller": args[0], "tokenAddress": args[1]}, true)
	})
}

func issuerMutation(args []string, method string) error {
	return requireArgs(args, 2, func() error {
		return call(method, map[string]string{"caller": args[0], "issuer": args[1]}, true)
	})
}

func generateKey(args []string) error {
	path := "mission.key"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists, refusing to overwrite", path)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, key.Bytes(), 0o600); err != nil {
		return err
	}
	fmt.Println("Address:", key.PubKey().Address().String())
	fmt.Println("Key saved to", path)
	return nil
}

// createMission args: <caller> <totalPoints> <startTime> <endTime> [tokenAddress tokenAmount]
func createMission(args []string) error {
	return requireArgs(args, 4, func() error {
		totalPoints, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid total points: %w", err)
		}
		startTime, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		endTime, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid end time: %w", err)
		}
		params := map[string]interface{}{
			"caller":      args[0],
			"totalPoints": totalPoints,
			"startTime":   startTime,
			"endTime":     endTime,
		}
		if len(args) >= 6 {
			params["tokenAddress"] = args[4]
			params["tokenAmount"] = args[5]
		} else if len(args) == 5 {
			params["tokenAmount"] = args[4]
		}
		return call("missions_create", params, true)
	})
}

// distribute args: <caller> <missionId> <recipient:amount:points>...
func distribute(args []string) error {
	return requireArgs(args, 3, func() error {
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid mission id: %w", err)
		}
		entries := make([]map[string]interface{}, 0, len(args)-2)
		for _, raw := range args[2:] {
			parts := strings.Split(raw, ":")
			if len(parts) != 3 {
				return fmt.Errorf("distribution %q must be recipient:amount:points", raw)
			}
			pts, err := strconv.ParseUint(parts[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid points in %q: %w", raw, err)
			}
			entries = append(entries, map[string]interface{}{
				"recipient": parts[0],
				"amount":    parts[1],
				"points":    pts,
			})
		}
		return call("missions_distributeRewards", map[string]interface{}{
			"caller":        args[0],
			"missionId":     id,
			"distributions": entries,
		}, true)
	})
}

// award args: <caller> <recipient> <basePoints> [reason]
func award(args []string) error {
	return requireArgs(args, 3, func() error {
		base, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid base points: %w", err)
		}
		params := map[string]interface{}{
			"caller":     args[0],
			"recipient":  args[1],
			"basePoints": base,
		}
		if len(args) > 3 {
			params["reason"] = strings.Join(args[3:], " ")
		}
		return call("points_award", params, true)
	})
}

func call(method string, param interface{}, requireAuth bool) error {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if strings.TrimSpace(rpcAuthToken) == "" {
			return fmt.Errorf("privileged RPC call requires MISSIONLEDGER_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response from node: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("error from node (code %d): %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, rpcResp.Result, "", "  "); err != nil {
		fmt.Println(string(rpcResp.Result))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func printUsage() {
	fmt.Println(`Usage: mission-cli [--rpc <url>] <command> [args]

Keys:
  generate-key [file]                          Generate a key and print its address

Missions:
  create-mission <caller> <points> <start> <end> [token] [amount]
  distribute <caller> <id> <recipient:amount:points>...
  finalize <caller> <id>
  get-mission <id>
  mission-count
  is-active <id>
  add-token <caller> <token>
  remove-token <caller> <token>
  is-token-allowed <token>
  owner
  distributor
  set-distributor <caller> <distributor>

Points:
  award <caller> <recipient> <basePoints> [reason]
  user-points <address>
  achievements <address>
  achievement <id>
  multiplier
  set-multiplier <caller> <value>
  total-issued
  add-issuer <caller> <issuer>
  remove-issuer <caller> <issuer>
  is-issuer <issuer>

Privileged commands read the bearer token from MISSIONLEDGER_RPC_TOKEN.`)
}
