// Command reel drives a running comic reel service from the shell.
//
//	reel create -metadata comic.json -image comic.png [-music bed.mp3] [-wait]
//	reel status <project>
//	reel panels <project>
//	reel process|audio|direct|render <project> [-wait]
//	reel approve <project> [-facet both] [-panels 1,2]
//	reel cancel <project>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"comicreel/client"
	"comicreel/types"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	apiURL := fs.String("api", "", "service URL (defaults to API_URL)")
	wait := fs.Bool("wait", false, "wait for the job to settle")
	metaPath := fs.String("metadata", "", "metadata JSON file")
	imagePath := fs.String("image", "", "comic image")
	musicPath := fs.String("music", "", "background music")
	aspect := fs.String("aspect", "", "aspect ratio, e.g. 9:16")
	voice := fs.String("voice", "", "narrator voice id")
	facet := fs.String("facet", "both", "audio, instructions or both")
	panelsFlag := fs.String("panels", "", "comma-separated panel numbers (default all)")

	var projectID string
	if cmd != "create" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		projectID, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}
	if cmd != "create" && projectID == "" {
		usage()
	}

	c := client.NewClient(*apiURL)
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	switch cmd {
	case "create":
		if *metaPath == "" || *imagePath == "" {
			log.Fatal("-metadata and -image are required")
		}
		raw, err := os.ReadFile(*metaPath)
		if err != nil {
			log.Fatalf("read metadata: %v", err)
		}
		var meta types.ComicMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			log.Fatalf("parse metadata: %v", err)
		}
		p, err := c.CreateProject(ctx, client.NewProject{
			Metadata:      meta,
			ImagePath:     *imagePath,
			MusicPath:     *musicPath,
			AspectRatio:   *aspect,
			NarratorVoice: *voice,
		})
		if err != nil {
			log.Fatalf("create failed: %v", err)
		}
		fmt.Println(p.ID)
		if *wait {
			if err := c.Start(ctx, p.ID, "process"); err != nil {
				log.Fatalf("process failed: %v", err)
			}
			settle(ctx, c, p.ID)
		}

	case "status":
		st, err := c.Status(ctx, projectID)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(st)

	case "panels":
		panels, err := c.Panels(ctx, projectID)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(panels)

	case "process", "audio", "direct", "render":
		if err := c.Start(ctx, projectID, cmd); err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && len(apiErr.Unapproved) > 0 {
				log.Fatalf("render refused, unapproved panels: %v", apiErr.Unapproved)
			}
			log.Fatal(err)
		}
		log.Printf("%s queued for %s", cmd, projectID)
		if *wait {
			settle(ctx, c, projectID)
		}

	case "approve":
		panels, err := parsePanels(*panelsFlag)
		if err != nil {
			log.Fatal(err)
		}
		approved, err := c.Approve(ctx, projectID, *facet, panels)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("approved %s for panels %v", *facet, approved)

	case "cancel":
		if err := c.Cancel(ctx, projectID); err != nil {
			log.Fatal(err)
		}
		log.Printf("cancel requested for %s", projectID)

	default:
		usage()
	}
}

func settle(ctx context.Context, c *client.Client, projectID string) {
	st, err := c.WaitForStatus(ctx, projectID, 2*time.Second, types.StatusReadyForReview, types.StatusComplete)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("project %s is %s", projectID, st.Project.Status)
	if st.FinalVideoURL != "" {
		fmt.Println(st.FinalVideoURL)
	}
}

func parsePanels(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid panel %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: reel create|status|panels|process|audio|direct|render|approve|cancel [project] [flags]")
	os.Exit(2)
}
