package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session/tdesktop"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("=== reactdl auth tool ===")
	fmt.Println("this tool creates the telegram session used by the watcher daemon")
	fmt.Println()

	_ = godotenv.Load()

	reader := bufio.NewReader(os.Stdin)

	// try to detect telegram desktop
	tdataPath := getTelegramDesktopPath()
	accounts, tdataErr := tdesktop.Read(tdataPath, nil)

	// if default path failed, try asking user
	if tdataErr != nil || len(accounts) == 0 {
		fmt.Printf("default path not found: %s\n", tdataPath)
		fmt.Print("enter telegram desktop path (or press enter to skip): ")
		customPath, _ := reader.ReadString('\n')
		customPath = strings.TrimSpace(customPath)

		if customPath != "" {
			if !strings.HasSuffix(customPath, "tdata") {
				customPath = filepath.Join(customPath, "tdata")
			}
			accounts, tdataErr = tdesktop.Read(customPath, nil)
			if tdataErr == nil && len(accounts) > 0 {
				tdataPath = customPath
			}
		}
	}

	var authMethod int

	if tdataErr == nil && len(accounts) > 0 {
		fmt.Printf("\ndetected %d telegram desktop session(s) at: %s\n", len(accounts), tdataPath)
		fmt.Println()
		fmt.Println("choose authentication method:")
		fmt.Println("  1. use telegram desktop session (recommended)")
		fmt.Println("  2. authenticate with phone number (sms/code)")
		fmt.Print("\nenter choice [1]: ")

		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		if choice == "2" {
			authMethod = 2
		} else {
			authMethod = 1
		}
	} else {
		fmt.Println("no telegram desktop session found, using phone auth")
		authMethod = 2
	}

	apiID, apiHash := getAPICredentials(reader)
	sessionPath := getSessionPath()

	var client *gotgproto.Client
	var err error

	if authMethod == 1 {
		client, err = authWithTData(apiID, apiHash, sessionPath, accounts, reader)
	} else {
		client, err = authWithPhone(apiID, apiHash, sessionPath, reader)
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	defer client.Stop()

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	fmt.Printf("\nsession stored at: %s.db\n", sessionPath)
	fmt.Println("the watcher daemon will pick it up on the next start")
	fmt.Println("\n⚠️  keep the session file secret! it provides full access to your telegram account")
}

// getSessionPath resolves the sqlite session location shared with the daemon.
func getSessionPath() string {
	dir := os.Getenv("TG_SESSION_DIR")
	if dir == "" {
		dir = "./session"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("error: cannot create session dir %s: %v\n", dir, err)
		os.Exit(1)
	}
	return filepath.Join(dir, "reactdl_session")
}

// getTelegramDesktopPath returns the path to Telegram Desktop data directory
func getTelegramDesktopPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Telegram Desktop", "tdata")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Telegram Desktop", "tdata")
	default: // linux
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "TelegramDesktop", "tdata")
	}
}

// getAPICredentials reads API ID and Hash from env or prompts user
func getAPICredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiHash := os.Getenv("TG_API_HASH")

	if apiIDStr == "" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fmt.Printf("error: invalid api_id: %v\n", err)
		os.Exit(1)
	}

	return apiID, apiHash
}

// authWithTData authenticates using a Telegram Desktop session
func authWithTData(apiID int, apiHash string, sessionPath string, accounts []tdesktop.Account, reader *bufio.Reader) (*gotgproto.Client, error) {
	var selectedAccount tdesktop.Account

	if len(accounts) == 1 {
		selectedAccount = accounts[0]
		fmt.Println("\nusing the only available account")
	} else {
		fmt.Printf("\nfound %d telegram accounts:\n", len(accounts))
		for i := range accounts {
			fmt.Printf("  %d. Account #%d\n", i+1, i+1)
		}

		fmt.Print("\nselect account number [1]: ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		idx := 0
		if choice != "" {
			n, err := strconv.Atoi(choice)
			if err == nil && n >= 1 && n <= len(accounts) {
				idx = n - 1
			}
		}
		selectedAccount = accounts[idx]
	}

	fmt.Println("\nimporting telegram desktop session...")

	return gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(""), // empty = use imported session
		&gotgproto.ClientOpts{
			Session:          sessionMaker.TdataSession(selectedAccount).Name(sessionPath),
			DisableCopyright: true,
		},
	)
}

// authWithPhone authenticates using phone number (SMS/code)
func authWithPhone(apiID int, apiHash string, sessionPath string, reader *bufio.Reader) (*gotgproto.Client, error) {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for code)")

	return gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionPath)),
			DisableCopyright: true,
		},
	)
}
