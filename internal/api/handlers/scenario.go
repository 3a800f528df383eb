package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"grid-arbitrage/internal/api/models"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/scenario"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ScenarioHandler lists built-in presets and the scenario files on disk
type ScenarioHandler struct {
	dir string
}

// NewScenarioHandler creates a new scenario handler reading from dir
func NewScenarioHandler(dir string) *ScenarioHandler {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	log.Info().Str("dir", dir).Msg("scenarios: using scenario directory")
	return &ScenarioHandler{dir: dir}
}

// ListScenarios handles GET /api/v1/scenarios
func (h *ScenarioHandler) ListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, models.ScenariosResponse{
		Presets: scenario.Presets(),
		Files:   h.listFiles(),
	})
}

func (h *ScenarioHandler) listFiles() []models.ScenarioInfo {
	files := []models.ScenarioInfo{}

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		// A missing directory just means there are no files.
		log.Warn().Err(err).Str("dir", h.dir).Msg("scenarios: cannot read directory")
		return files
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		info, err := loadScenarioInfo(filepath.Join(h.dir, entry.Name()), entry.Name())
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("scenarios: skipping invalid file")
			continue
		}
		files = append(files, *info)
	}
	return files
}

func loadScenarioInfo(path, filename string) (*models.ScenarioInfo, error) {
	sc, err := config.LoadScenarioFile(path)
	if err != nil {
		return nil, err
	}

	// The file name without extension is the ID used in run requests.
	id := strings.TrimSuffix(filename, ".yaml")
	name := sc.Name
	if name == "" {
		name = id
	}
	preset := sc.Preset
	if preset == "" {
		preset = string(scenario.KindSingleBus)
	}
	return &models.ScenarioInfo{
		ID:     id,
		Name:   name,
		File:   filename,
		Preset: preset,
	}, nil
}
