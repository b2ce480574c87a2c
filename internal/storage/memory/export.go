package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FormatVersion is bumped whenever the replay layout changes.
const FormatVersion = 1

// ReplayExport is the root JSON structure
type ReplayExport struct {
	FormatVersion    int          `json:"formatVersion"`
	SimulatorVersion string       `json:"simulatorVersion"`
	TuningVersion    string       `json:"tuningVersion"`
	MatchName        string       `json:"matchName"`
	HomeTeam         string       `json:"homeTeam"`
	AwayTeam         string       `json:"awayTeam"`
	Tag              string       `json:"tag"`
	Seed             uint64       `json:"seed"`
	StartTime        time.Time    `json:"startTime"`
	Score            [2]int       `json:"score"`
	PossessionMS     [2]int       `json:"possessionMS"`
	MatchTimeMS      int          `json:"matchTimeMS"`
	EndFrame         uint         `json:"endFrame"`
	Players          []PlayerJSON `json:"players"`
	Frames           [][]any      `json:"frames"`
	Events           [][]any      `json:"events"`
	Possession       [][]any      `json:"possession"`
}

// PlayerJSON is a roster entry.
type PlayerJSON struct {
	ID   uint16 `json:"id"`
	Team uint8  `json:"team"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// round2 rounds to centimeters.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.match.Name)
	timestamp := b.match.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() ReplayExport {
	export := ReplayExport{
		FormatVersion:    FormatVersion,
		SimulatorVersion: b.match.SimulatorVersion,
		TuningVersion:    b.match.TuningVersion,
		MatchName:        b.match.Name,
		HomeTeam:         b.match.HomeTeam,
		AwayTeam:         b.match.AwayTeam,
		Tag:              b.match.Tag,
		Seed:             b.match.Seed,
		StartTime:        b.match.StartTime,
		Players:          make([]PlayerJSON, 0, len(b.match.Players)),
		Frames:           make([][]any, 0, len(b.frames)),
		Events:           make([][]any, 0, len(b.goals)+len(b.fouls)),
		Possession:       make([][]any, 0, len(b.possession)),
	}
	if b.result != nil {
		export.Score = b.result.Goals
		export.PossessionMS = b.result.PossessionMS
		export.MatchTimeMS = b.result.MatchTimeMS
	}

	for _, p := range b.match.Players {
		export.Players = append(export.Players, PlayerJSON{ID: p.ID, Team: p.TeamID, Name: p.Name, Role: p.Role})
	}

	// Format: [iteration, matchTimeMS, [bx, by, bz], inPlay, [[id, x, y, dirX, dirY, function, active], ...]]
	for _, f := range b.frames {
		players := make([][]any, 0, len(f.Players))
		for _, p := range f.Players {
			players = append(players, []any{
				p.PlayerID,
				round2(p.Position.X),
				round2(p.Position.Y),
				round2(p.Direction.X),
				round2(p.Direction.Y),
				p.Function,
				boolToInt(p.Active),
			})
		}
		export.Frames = append(export.Frames, []any{
			f.Iteration,
			f.MatchTimeMS,
			[]float64{round2(f.Ball.X), round2(f.Ball.Y), round2(f.Ball.Z)},
			boolToInt(f.InPlay),
			players,
		})
		export.EndFrame = max(export.EndFrame, f.Iteration)
	}

	// Format: [iteration, "goal", teamId, scorerId, ownGoal, "h-a"]
	for _, g := range b.goals {
		scorer := -1
		if g.ScorerID != nil {
			scorer = int(*g.ScorerID)
		}
		export.Events = append(export.Events, []any{
			g.Iteration,
			"goal",
			g.TeamID,
			scorer,
			boolToInt(g.OwnGoal),
			fmt.Sprintf("%d-%d", g.Score[0], g.Score[1]),
		})
	}

	// Format: [iteration, "foul", type, offenderId, victimId, [x, y]]
	for _, f := range b.fouls {
		export.Events = append(export.Events, []any{
			f.Iteration,
			"foul",
			f.Type,
			f.OffenderID,
			f.VictimID,
			[]float64{round2(f.Position.X), round2(f.Position.Y)},
		})
	}

	// Format: [iteration, bestTeam, tilt]
	for _, s := range b.possession {
		export.Possession = append(export.Possession, []any{s.Iteration, s.BestTeam, round2(s.Tilt)})
	}

	return export
}

func writeJSON(path string, data ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("encode replay: %w", err)
	}
	return gzWriter.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
