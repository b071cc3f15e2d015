package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calegria/mp3tube/config"
	"github.com/calegria/mp3tube/internal/metadata"
	"github.com/calegria/mp3tube/internal/processor"
	"github.com/calegria/mp3tube/internal/youtube"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mp3tube",
		Short: "Convert MP3 files to YouTube-ready videos and upload them",
		Long: `mp3tube converts an MP3 plus a cover image into a static-image video and
uploads it to YouTube with metadata.

Quick start:
  1. mp3tube auth --client-secrets path/to/client_secrets.json
  2. mp3tube publish song.mp3 --title "My Song"

Or with a metadata file:
  1. mp3tube template -o publish.json
  2. Edit publish.json with your details
  3. mp3tube publish --metadata publish.json`,
		SilenceUsage: true,
	}

	convertCmd = &cobra.Command{
		Use:   "convert MP3_FILE",
		Short: "Convert an MP3 to an MP4 video with a cover image",
		Long: `Convert an MP3 to an MP4 video with a cover image.

Examples:
  mp3tube convert song.mp3
  mp3tube convert song.mp3 -o video.mp4 -c cover.jpg
  mp3tube convert song.mp3 --background black
  mp3tube convert song.mp3 --background "#1a1a2e"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(cmd.Context())
			if err != nil {
				return err
			}

			opts := &config.ConvertOptions{InputPath: args[0]}
			opts.OutputPath, _ = cmd.Flags().GetString("output")
			opts.CoverPath, _ = cmd.Flags().GetString("cover")
			opts.Resolution, _ = cmd.Flags().GetString("resolution")
			opts.Background, _ = cmd.Flags().GetString("background")
			opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")
			opts.WideAspectThreshold, _ = cmd.Flags().GetFloat64("wide-threshold")
			applyConvertDefaults(opts, defaults)

			outputPath, err := processor.NewConverter(opts).Process()
			if err != nil {
				return err
			}

			fmt.Printf("Created: %s\n", outputPath)
			return nil
		},
	}

	uploadCmd = &cobra.Command{
		Use:   "upload VIDEO_FILE",
		Short: "Upload an MP4 video to YouTube",
		Long: `Upload an MP4 video to YouTube.

Examples:
  mp3tube upload video.mp4 -t "My Song" -p unlisted
  mp3tube upload video.mp4 -t "My Song" --tags "music,ai,suno"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(cmd.Context())
			if err != nil {
				return err
			}

			opts := &config.UploadOptions{VideoPath: args[0]}
			opts.Title, _ = cmd.Flags().GetString("title")
			opts.Description, _ = cmd.Flags().GetString("description")
			opts.Category, _ = cmd.Flags().GetString("category")
			opts.Privacy, _ = cmd.Flags().GetString("privacy")
			opts.ThumbnailPath, _ = cmd.Flags().GetString("thumbnail")
			opts.MadeForKids, _ = cmd.Flags().GetBool("made-for-kids")
			opts.ChunkSize, _ = cmd.Flags().GetInt64("chunk-size")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			tags, _ := cmd.Flags().GetString("tags")
			opts.Tags = parseTags(tags)
			if opts.ChunkSize == 0 {
				opts.ChunkSize = defaults.ChunkSize
			}

			result, warnings, err := processor.Upload(cmd.Context(), opts, credentials(cmd, defaults), progressPrinter())
			if err != nil {
				return err
			}
			fmt.Println()

			fmt.Printf("Uploaded: %s\n", result.Title)
			fmt.Printf("URL: %s\n", result.WatchURL)
			fmt.Printf("Privacy: %s\n", result.Privacy)
			printWarnings(warnings)
			return nil
		},
	}

	publishCmd = &cobra.Command{
		Use:   "publish [MP3_FILE]",
		Short: "Convert an MP3 and upload it to YouTube in one step",
		Long: `Convert an MP3 and upload it to YouTube in one step.

Examples:
  # Quick publish with title
  mp3tube publish song.mp3 -t "My Song" -p unlisted

  # From a metadata file
  mp3tube publish --metadata publish.json

  # Metadata file with overrides
  mp3tube publish --metadata publish.json -t "New Title" -p public`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(cmd.Context())
			if err != nil {
				return err
			}

			opts := &config.PublishOptions{}
			if len(args) == 1 {
				opts.AudioPath = args[0]
			}
			opts.MetadataPath, _ = cmd.Flags().GetString("metadata")
			opts.Title, _ = cmd.Flags().GetString("title")
			opts.Description, _ = cmd.Flags().GetString("description")
			opts.CoverPath, _ = cmd.Flags().GetString("cover")
			opts.Category, _ = cmd.Flags().GetString("category")
			opts.Privacy, _ = cmd.Flags().GetString("privacy")
			opts.Background, _ = cmd.Flags().GetString("background")
			opts.Resolution, _ = cmd.Flags().GetString("resolution")
			opts.ThumbnailPath, _ = cmd.Flags().GetString("thumbnail")
			opts.KeepVideo, _ = cmd.Flags().GetBool("keep-video")
			opts.VideoOnly, _ = cmd.Flags().GetBool("video-only")
			opts.ChunkSize, _ = cmd.Flags().GetInt64("chunk-size")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			tags, _ := cmd.Flags().GetString("tags")
			opts.Tags = parseTags(tags)
			if opts.Background == "" {
				opts.Background = defaults.Background
			}
			if opts.Resolution == "" {
				opts.Resolution = defaults.Resolution
			}
			if opts.ChunkSize == 0 {
				opts.ChunkSize = defaults.ChunkSize
			}

			publisher := processor.NewPublisher(opts, credentials(cmd, defaults))
			outcome, err := publisher.Process(cmd.Context(), progressPrinter())
			if err != nil {
				return err
			}

			if outcome.Upload == nil {
				fmt.Printf("Done! Video saved to: %s\n", outcome.VideoPath)
				return nil
			}
			fmt.Println()

			fmt.Println("Published!")
			fmt.Printf("Title: %s\n", outcome.Upload.Title)
			fmt.Printf("URL: %s\n", outcome.Upload.WatchURL)
			fmt.Printf("Privacy: %s\n", outcome.Upload.Privacy)
			if outcome.VideoPath != "" {
				fmt.Printf("Video kept at: %s\n", outcome.VideoPath)
			}
			printWarnings(outcome.Warnings)
			return nil
		},
	}

	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "Set up YouTube authentication",
		Long: `Set up YouTube authentication.

First time setup:
  1. Go to https://console.cloud.google.com/
  2. Create a project and enable YouTube Data API v3
  3. Create OAuth 2.0 credentials (Desktop app)
  4. Download the client secrets JSON
  5. Run: mp3tube auth --client-secrets path/to/file.json

After setup you can upload videos without re-authenticating.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(cmd.Context())
			if err != nil {
				return err
			}
			creds := credentials(cmd, defaults)

			if secrets, _ := cmd.Flags().GetString("client-secrets"); secrets != "" {
				if err := youtube.InstallClientSecrets(secrets, creds); err != nil {
					return err
				}
				fmt.Printf("Copied client secrets to: %s\n", creds.ClientSecretsFile)
			}

			if err := youtube.Authorize(cmd.Context(), creds, os.Stdin, os.Stdout); err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			client, err := youtube.NewClient(cmd.Context(), creds, verbose)
			if err != nil {
				return err
			}
			title, id, err := client.ChannelInfo(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println("Authenticated successfully!")
			fmt.Printf("Channel: %s (%s)\n", title, id)
			fmt.Printf("Token saved to: %s\n", creds.TokenFile)
			return nil
		},
	}

	templateCmd = &cobra.Command{
		Use:   "template",
		Short: "Create a template publish.json file",
		Long: `Create a template publish.json file.

Example:
  mp3tube template -o my-song.json -a song.mp3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			audio, _ := cmd.Flags().GetString("audio")

			if err := metadata.WriteTemplate(output, audio); err != nil {
				return err
			}

			fmt.Printf("Created template: %s\n", output)
			fmt.Printf("Edit the file and run: mp3tube publish --metadata %s\n", output)
			return nil
		},
	}
)

func applyConvertDefaults(opts *config.ConvertOptions, defaults *config.Defaults) {
	if opts.Resolution == "" {
		opts.Resolution = defaults.Resolution
	}
	if opts.Background == "" {
		opts.Background = defaults.Background
	}
}

// credentials resolves the credential file paths from the --credentials-dir
// flag or the environment defaults.
func credentials(cmd *cobra.Command, defaults *config.Defaults) config.Credentials {
	if dir, _ := cmd.Flags().GetString("credentials-dir"); dir != "" {
		d := &config.Defaults{CredentialsDir: dir}
		return d.Credentials()
	}
	return defaults.Credentials()
}

// progressPrinter renders upload progress in place on one line.
func progressPrinter() func(percent int) {
	return func(percent int) {
		fmt.Printf("\rUploading... %3d%%", percent)
	}
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	split := strings.Split(raw, ",")
	var tags []string
	for _, tag := range split {
		clean := strings.TrimSpace(tag)
		if clean != "" {
			tags = append(tags, clean)
		}
	}
	return tags
}

func init() {
	rootCmd.PersistentFlags().String("credentials-dir", "",
		"Directory holding client_secrets.json and token.json (default: ~/.config/mp3tube)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Convert command flags
	convertCmd.Flags().StringP("output", "o", "", "Output MP4 file path (default: input name with .mp4)")
	convertCmd.Flags().StringP("cover", "c", "", "Cover image (default: extract from the MP3)")
	convertCmd.Flags().StringP("resolution", "r", "", "Video resolution (default: 1920x1080)")
	convertCmd.Flags().StringP("background", "b", "",
		"Background for non-16:9 images: blur, black, or hex color (default: blur)")
	convertCmd.Flags().Bool("overwrite", false, "Overwrite existing output file")
	convertCmd.Flags().Float64("wide-threshold", 0,
		"Aspect ratio at or above which a cover counts as landscape (default: 1.7)")

	// Upload command flags
	uploadCmd.Flags().StringP("title", "t", "", "Video title (max 100 chars)")
	uploadCmd.Flags().StringP("description", "d", "", "Video description")
	uploadCmd.Flags().String("tags", "", "Comma-separated tags")
	uploadCmd.Flags().String("category", "music", "Category name or numeric ID (default: music)")
	uploadCmd.Flags().StringP("privacy", "p", "private", "Privacy setting: public, private, or unlisted")
	uploadCmd.Flags().String("thumbnail", "", "Custom thumbnail image")
	uploadCmd.Flags().Bool("made-for-kids", false, "Mark as made for kids (COPPA)")
	uploadCmd.Flags().Int64("chunk-size", 0, "Upload chunk size in bytes (default: 1MB)")

	uploadCmd.MarkFlagRequired("title")

	// Publish command flags
	publishCmd.Flags().StringP("metadata", "m", "", "Metadata JSON/YAML file")
	publishCmd.Flags().StringP("title", "t", "", "Video title (overrides metadata)")
	publishCmd.Flags().StringP("description", "d", "", "Video description (overrides metadata)")
	publishCmd.Flags().String("tags", "", "Comma-separated tags (overrides metadata)")
	publishCmd.Flags().StringP("cover", "c", "", "Cover image (overrides metadata)")
	publishCmd.Flags().String("category", "", "Category name or numeric ID (default: music)")
	publishCmd.Flags().StringP("privacy", "p", "", "Privacy setting: public, private, or unlisted (default: private)")
	publishCmd.Flags().StringP("background", "b", "", "Background mode: blur, black, or hex color (default: blur)")
	publishCmd.Flags().StringP("resolution", "r", "", "Video resolution (default: 1920x1080)")
	publishCmd.Flags().String("thumbnail", "", "Custom thumbnail image (overrides metadata)")
	publishCmd.Flags().Bool("keep-video", false, "Keep the intermediate MP4 file")
	publishCmd.Flags().Bool("video-only", false, "Only create the video, do not upload")
	publishCmd.Flags().Int64("chunk-size", 0, "Upload chunk size in bytes (default: 1MB)")

	// Auth command flags
	authCmd.Flags().String("client-secrets", "", "Path to an OAuth2 client secrets JSON file to install")

	// Template command flags
	templateCmd.Flags().StringP("output", "o", "publish.json", "Output file path")
	templateCmd.Flags().StringP("audio", "a", "", "Audio file to reference in the template")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(templateCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
