package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		fmt.Printf("  Vertices: %v\n", job["config"].(map[string]interface{})["n"])
		if job["status"] != nil {
			fmt.Printf("  Status: %s\n", job["status"])
		}
		if job["d"] != nil {
			fmt.Printf("  D: %.6f\n", job["d"].(float64))
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	config := status["config"].(map[string]interface{})
	fmt.Println("Configuration:")
	fmt.Printf("  Vertices: %v\n", config["n"])
	if config["backend"] != nil {
		fmt.Printf("  Backend: %s\n", config["backend"])
	} else {
		fmt.Println("  Backend: projection")
	}
	fmt.Println()

	if status["status"] != nil {
		fmt.Printf("Solver status: %s\n", status["status"])
	}
	if status["d"] != nil {
		fmt.Printf("Distortion D: %.6f\n", status["d"].(float64))
	}
	if status["error"] != nil && status["error"].(string) != "" {
		fmt.Printf("\nError: %s\n", status["error"])
	}

	return nil
}
