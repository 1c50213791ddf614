package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/joho/godotenv"

	"github.com/Joab0/squarecloud-manager/squarecloud"
)

var helpStr = `Usage:
  square <command> [arguments]

Available Commands:
  list        List all your applications
  status      Show the status of an application
  logs        Print the logs of an application
  start       Start an application
  restart     Restart an application
  stop        Stop an application
  backup      Get a backup download link for an application
  delete      Delete an application
  up          Upload a new application
  commit      Commit a file to an existing application
  statistics  Show service statistics

Flags:
  -h, --help   help for square

Set SQUARE_API_KEY in the environment or in a .env file.
Use "square <command> --help" for more information about a command.`

func appID(command string, args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("Usage: square %s <app id>", command)
	}
	return args[0], nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func runCommand(ctx context.Context, client *squarecloud.Client, command string, args []string) error {
	seekingHelp := false
	if len(args) > 0 && (args[len(args)-1] == "--help" || args[len(args)-1] == "-h") {
		seekingHelp = true
		args = args[:len(args)-1]
	}

	loadingSpinner := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	loadingSpinner.Suffix = " working..."
	defer func() {
		if loadingSpinner.Active() {
			loadingSpinner.Stop()
		}
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt)
	go func() {
		<-signalChannel
		if loadingSpinner.Active() {
			loadingSpinner.Stop()
		}

		os.Exit(0)
	}()

	switch command {
	case "list":
		if seekingHelp {
			fmt.Println(`Usage:
  square list

Lists every application on your account with its current status.`)
			return nil
		}

		loadingSpinner.Start()
		apps, err := client.GetAllApps(ctx)
		if err != nil {
			return err
		}

		statuses, err := client.GetAllAppsStatus(ctx)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		if len(apps) == 0 {
			fmt.Println("No applications found")
			return nil
		}

		running := make(map[string]bool, len(statuses))
		for _, status := range statuses {
			running[status.ID] = status.Running
		}

		for _, app := range apps {
			state := "stopped"
			if running[app.ID] {
				state = "running"
			}
			fmt.Printf("%s  %s (%s, %dMB)\n", app.ID, app.Name, state, app.RAM)
		}
	case "status":
		if seekingHelp {
			fmt.Println(`Usage:
  square status <app id>

Shows resource usage and uptime for an application.`)
			return nil
		}

		id, err := appID(command, args)
		if err != nil {
			return err
		}

		loadingSpinner.Start()
		status, err := client.GetAppStatus(ctx, id)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		state := "stopped"
		if status.Running {
			state = "running"
		}
		fmt.Printf("Status:   %s\n", state)
		fmt.Printf("CPU:      %s\n", status.CPU)
		fmt.Printf("RAM:      %s\n", status.RAM)
		fmt.Printf("Storage:  %s\n", status.Storage)
		fmt.Printf("Network:  %s\n", status.Network.Total)
		fmt.Printf("Requests: %d\n", status.Requests)
		if status.Running && status.Uptime != nil {
			fmt.Printf("Uptime:   %s\n", time.Since(*status.Uptime).Round(time.Second))
		}
	case "logs":
		if seekingHelp {
			fmt.Println(`Usage:
  square logs <app id>

Prints the latest logs of an application.`)
			return nil
		}

		id, err := appID(command, args)
		if err != nil {
			return err
		}

		loadingSpinner.Start()
		logs, err := client.GetAppLogs(ctx, id)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		if logs == "" {
			fmt.Println("No logs available")
			return nil
		}
		fmt.Println(logs)
	case "start", "restart", "stop":
		if seekingHelp {
			fmt.Printf(`Usage:
  square %[1]s <app id>

Sends a %[1]s signal to the application.
`, command)
			return nil
		}

		id, err := appID(command, args)
		if err != nil {
			return err
		}

		loadingSpinner.Start()
		switch command {
		case "start":
			err = client.StartApp(ctx, id)
		case "restart":
			err = client.RestartApp(ctx, id)
		case "stop":
			err = client.StopApp(ctx, id)
		}
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("Successfully sent %s to %s\n", command, id)
	case "backup":
		if seekingHelp {
			fmt.Println(`Usage:
  square backup <app id>

Generates a backup and prints its download link.`)
			return nil
		}

		id, err := appID(command, args)
		if err != nil {
			return err
		}

		loadingSpinner.Start()
		url, err := client.GetBackupURL(ctx, id)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		fmt.Println(url)
	case "delete":
		if seekingHelp {
			fmt.Println(`Usage:
  square delete <app id>

Permanently deletes an application. This cannot be undone.`)
			return nil
		}

		id, err := appID(command, args)
		if err != nil {
			return err
		}

		if !confirm(fmt.Sprintf("Delete application %s?", id)) {
			fmt.Println("Aborted")
			return nil
		}

		loadingSpinner.Start()
		err = client.DeleteApp(ctx, id)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("Successfully deleted %s\n", id)
	case "up":
		if seekingHelp {
			fmt.Println(`Usage:
  square up <file.zip>

Uploads a zip archive as a new application. The archive must contain
a squarecloud.app config file at its root.`)
			return nil
		}

		if len(args) < 1 {
			return fmt.Errorf("Usage: square up <file.zip>")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", args[0], err)
		}

		if _, err := squarecloud.ParseArchiveConfig(data); err != nil {
			return fmt.Errorf("invalid archive: %v", err)
		}

		loadingSpinner.Start()
		app, err := client.Upload(ctx, squarecloud.NewFile(args[0], data))
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("Successfully uploaded %s (%s)\n", app.Name, app.ID)
		if app.Subdomain != "" {
			fmt.Printf("Subdomain: %s\n", app.Subdomain)
		}
	case "commit":
		if seekingHelp {
			fmt.Println(`Usage:
  square commit <app id> <file> [--restart]

Commits a file to an existing application, optionally restarting it.`)
			return nil
		}

		restart := false
		filtered := args[:0]
		for _, arg := range args {
			if arg == "--restart" {
				restart = true
				continue
			}
			filtered = append(filtered, arg)
		}
		args = filtered

		if len(args) < 2 {
			return fmt.Errorf("Usage: square commit <app id> <file> [--restart]")
		}

		file, err := squarecloud.OpenFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to open %s: %v", args[1], err)
		}

		loadingSpinner.Start()
		err = client.Commit(ctx, args[0], file, restart)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("Successfully committed %s to %s\n", args[1], args[0])
	case "statistics":
		if seekingHelp {
			fmt.Println(`Usage:
  square statistics

Shows global service statistics.`)
			return nil
		}

		loadingSpinner.Start()
		stats, err := client.GetServiceStatistics(ctx)
		loadingSpinner.Stop()
		if err != nil {
			return err
		}

		fmt.Printf("Users:    %d\n", stats.Users)
		fmt.Printf("Apps:     %d\n", stats.Apps)
		fmt.Printf("Websites: %d\n", stats.Websites)
		fmt.Printf("Ping:     %dms\n", stats.Ping)
	default:
		return fmt.Errorf("unknown command: %s\n%s", command, helpStr)
	}

	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(helpStr)
		os.Exit(1)
	}

	if os.Args[1] == "--help" || os.Args[1] == "-h" {
		fmt.Println(helpStr)
		os.Exit(0)
	}

	_ = godotenv.Load()

	apiKey := os.Getenv("SQUARE_API_KEY")
	if apiKey == "" {
		fmt.Println("SQUARE_API_KEY is not set")
		os.Exit(1)
	}

	client := squarecloud.New(apiKey)

	if err := runCommand(context.Background(), client, os.Args[1], os.Args[2:]); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
