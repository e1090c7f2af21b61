package widgets

import (
	"io/fs"

	"cityquest-mcp-service/pkg/content"
	"cityquest-mcp-service/pkg/schema"
)

// Score defaults
const (
	DefaultPlayerName     = "Adventurer"
	DefaultLastCheckpoint = "Awaiting new intel."
	DefaultScoreStatus    = "Score beacon updated"
)

// Video recap defaults for whitespace-only title or summary
const (
	DefaultVideoTitle   = "Mission Recap"
	DefaultVideoSummary = "No recap provided yet."
)

func startCityQuest(base string, templates fs.FS) ToolDefinition {
	adventureURL := base + "greeting"
	return ToolDefinition{
		Name:                   "start-cityquest",
		Title:                  "Start CityQuest Adventure",
		Description:            "Launch the CityQuest onboarding console to register a hero and begin a new mission.",
		InvokingMessage:        "Painting the skyline for your hero...",
		InvokedMessage:         "CityQuest console ready.",
		ResultMessage:          "Your adventure console is open and ready.",
		WidgetAccessible:       true,
		ResultCanProduceWidget: true,
		InputSchema:            schema.Shape{},
		OutputSchema: schema.Shape{
			schema.Prop("status", schema.String().
				Describe("Short status note describing whether the console loaded.")),
			schema.Prop("adventureUrl", schema.String().URL().
				Describe("URL that opens the CityQuest greeting experience.")),
		},
		HTML: startHTML(templates, adventureURL),
		Build: func(map[string]any) (map[string]any, error) {
			return map[string]any{
				"status":       "ready",
				"adventureUrl": adventureURL,
			}, nil
		},
	}
}

func updateScore(clock content.Clock, templates fs.FS) ToolDefinition {
	return ToolDefinition{
		Name:                   "update-score",
		Title:                  "Update CityQuest Score",
		Description:            "Render a live scoreboard card with the latest player totals, progress, and badges.",
		InvokingMessage:        "Syncing your guild ledger...",
		InvokedMessage:         "Score beacon synced.",
		ResultMessage:          "The score tracker has been updated.",
		WidgetAccessible:       true,
		ResultCanProduceWidget: true,
		InputSchema: schema.Shape{
			schema.Prop("playerName", schema.String().MinLen(1).
				Describe("Name of the player receiving the score update.")),
			schema.Prop("score", schema.Number().
				Describe("Total score after applying this update.")),
			schema.Prop("progressPercentage", schema.Number().Min(0).Max(100).AdvisoryOnly().Optional().
				Describe("Percent of the current quest that is complete.")),
			schema.Prop("badges", schema.ArrayOf(schema.String()).MaxItems(content.MaxBadges).AdvisoryOnly().Optional().
				Describe("List of badge or perk names that were unlocked during the update.")),
			schema.Prop("lastCheckpoint", schema.String().Optional().
				Describe("Narrative description of the newest checkpoint or action.")),
			schema.Prop("scoreDelta", schema.Number().Optional().
				Describe("How much the score changed in this update (positive or negative).")),
			schema.Prop("status", schema.String().Optional().
				Describe("Short sentence that appears on the status line.")),
		},
		OutputSchema: schema.Shape{
			schema.Prop("playerName", schema.String()),
			schema.Prop("score", schema.Number()),
			schema.Prop("progressPercentage", schema.Number().Min(0).Max(100).Optional()),
			schema.Prop("badges", schema.ArrayOf(schema.String()).MaxItems(content.MaxBadges)),
			schema.Prop("lastCheckpoint", schema.String()),
			schema.Prop("scoreDelta", schema.Number().Optional()),
			schema.Prop("status", schema.String()),
			schema.Prop("updatedAt", schema.String().Describe("ISO 8601 timestamp of the update.")),
		},
		HTML: staticHTML(templates, ScoreTemplate),
		Build: func(args map[string]any) (map[string]any, error) {
			playerName, _ := content.String(args, "playerName")
			score, _ := content.Float(args, "score")
			lastCheckpoint, _ := content.String(args, "lastCheckpoint")
			status, _ := content.String(args, "status")

			payload := map[string]any{
				"playerName":     content.TrimOr(playerName, DefaultPlayerName),
				"score":          score,
				"badges":         content.CapList(content.Strings(args, "badges"), content.MaxBadges),
				"lastCheckpoint": content.TrimOr(lastCheckpoint, DefaultLastCheckpoint),
				"status":         content.TrimOr(status, DefaultScoreStatus),
				"updatedAt":      content.Timestamp(clock),
			}
			if progress, ok := content.ClampPercentage(args["progressPercentage"]); ok {
				payload["progressPercentage"] = progress
			}
			if delta, ok := content.Float(args, "scoreDelta"); ok {
				payload["scoreDelta"] = delta
			}
			return payload, nil
		},
	}
}

func videoSummary(templates fs.FS) ToolDefinition {
	return ToolDefinition{
		Name:                   "video-summary",
		Title:                  "CityQuest Video Summary",
		Description:            "Embed a mission recording with a written recap, highlights, and follow-up action.",
		InvokingMessage:        "Stitching together your mission footage...",
		InvokedMessage:         "Video recap ready.",
		ResultMessage:          "The video summary widget has been rendered.",
		WidgetAccessible:       true,
		ResultCanProduceWidget: true,
		InputSchema: schema.Shape{
			schema.Prop("title", schema.String().MinLen(1).
				Describe("Title that will appear at the top of the video summary.")),
			schema.Prop("videoUrl", schema.String().URL().
				Describe("Direct link to the video resource or livestream.")),
			schema.Prop("summary", schema.String().MinLen(1).
				Describe("Multi-line narrative that describes what happens in the video.")),
			schema.Prop("highlights", schema.ArrayOf(schema.String()).MaxItems(content.MaxHighlights).AdvisoryOnly().Optional().
				Describe("Key bullets you would like highlighted under the summary.")),
			schema.Prop("callToAction", schema.String().Optional().
				Describe("Label for the call-to-action button beneath the summary.")),
			schema.Prop("ctaUrl", schema.String().URL().Optional().
				Describe("URL or deeplink that should be opened when the CTA is clicked.")),
			schema.Prop("duration", schema.String().Optional().
				Describe(`Friendly duration label (e.g., "3m 42s").`)),
			schema.Prop("thumbnailUrl", schema.String().URL().Optional().
				Describe("Poster image to show when rendering a direct video tag.")),
		},
		OutputSchema: schema.Shape{
			schema.Prop("title", schema.String()),
			schema.Prop("videoUrl", schema.String().URL()),
			schema.Prop("summary", schema.String()),
			schema.Prop("highlights", schema.ArrayOf(schema.String()).MaxItems(content.MaxHighlights).Optional()),
			schema.Prop("callToAction", schema.String().Optional()),
			schema.Prop("ctaUrl", schema.String().URL().Optional()),
			schema.Prop("duration", schema.String().Optional()),
			schema.Prop("thumbnailUrl", schema.String().URL().Optional()),
			schema.Prop("status", schema.String()),
			schema.Prop("embedUrl", schema.String().URL().Optional()),
		},
		HTML: staticHTML(templates, VideoTemplate),
		Build: func(args map[string]any) (map[string]any, error) {
			title, _ := content.String(args, "title")
			videoURL, _ := content.String(args, "videoUrl")
			summary, _ := content.String(args, "summary")

			payload := map[string]any{
				"title":    content.TrimOr(title, DefaultVideoTitle),
				"videoUrl": videoURL,
				"summary":  content.TrimOr(summary, DefaultVideoSummary),
				"status":   "ready",
			}
			if highlights := content.CapList(content.Strings(args, "highlights"), content.MaxHighlights); len(highlights) > 0 {
				payload["highlights"] = highlights
			}
			if cta, _ := content.String(args, "callToAction"); content.Trim(cta) != "" {
				payload["callToAction"] = content.Trim(cta)
			}
			if ctaURL, _ := content.String(args, "ctaUrl"); ctaURL != "" {
				payload["ctaUrl"] = ctaURL
			} else {
				payload["ctaUrl"] = videoURL
			}
			if duration, _ := content.String(args, "duration"); content.Trim(duration) != "" {
				payload["duration"] = content.Trim(duration)
			}
			if thumbnail, _ := content.String(args, "thumbnailUrl"); thumbnail != "" {
				payload["thumbnailUrl"] = thumbnail
			}
			if embed := content.EmbedURL(videoURL); embed != nil {
				payload["embedUrl"] = *embed
			}
			return payload, nil
		},
	}
}

var calculatorOperations = []string{"+", "-", "*", "/"}

func calculator(templates fs.FS) ToolDefinition {
	fields := schema.Shape{
		schema.Prop("display", schema.String().Optional().
			Describe("The initial current display value on the calculator")),
		schema.Prop("previousValue", schema.Number().Optional().
			Describe(`The initial previous value on the calculator. For example, if the user says "I want to add 5 to a number" set this to 5`)),
		schema.Prop("operation", schema.Enum(calculatorOperations...).Optional().
			Describe(`The initial operation on the calculator. For example, if the user says "I want to add 5 to a number" set this to "+"`)),
		schema.Prop("waitingForNewValue", schema.Boolean().Optional().
			Describe(`Whether the calculator is waiting for a new value. For example, if the user says "I want to add 5 to a number" set this to true. If they say "subtract 3 from 4" set this to false.`)),
		schema.Prop("errorState", schema.Boolean().Optional().
			Describe("Whether the calculator is in an error state")),
	}

	output := make(schema.Shape, len(fields))
	for i, p := range fields {
		output[i] = schema.Prop(p.Name, p.Field.Describe(""))
	}

	return ToolDefinition{
		Name:                   "calculator",
		Title:                  "Calculator",
		Description:            "A simple calculator",
		InvokingMessage:        "Getting your calculator ready",
		InvokedMessage:         "Here's your calculator",
		ResultMessage:          "The calculator has been rendered",
		WidgetAccessible:       true,
		ResultCanProduceWidget: true,
		InputSchema:            fields,
		OutputSchema:           output,
		HTML:                   staticHTML(templates, CalculatorTemplate),
		Build: func(args map[string]any) (map[string]any, error) {
			payload := make(map[string]any, len(fields))
			for _, name := range fields.Names() {
				if value, ok := args[name]; ok && value != nil {
					payload[name] = value
				}
			}
			return payload, nil
		},
	}
}
