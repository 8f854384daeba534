// Package api provides the REST API server for sf2-to-opxy
package api

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/charlesvestal/sf2-to-opxy/pkg/converter"
	"github.com/charlesvestal/sf2-to-opxy/pkg/dsp"
	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

// @title sf2-to-opxy API
// @version 1.0
// @description API for converting SoundFont banks to OP-XY presets
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := gin.Default()

	r.Use(corsMiddleware())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert", handleConvert)
		v1.POST("/inspect", handleInspect)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "sf2-to-opxy",
	})
}

// saveUpload writes the uploaded .sf2 to a temp dir and returns its
// path plus a cleanup function.
func saveUpload(c *gin.Context) (string, string, func(), bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", "", nil, false
	}
	defer func() { _ = file.Close() }()

	tmpDir, err := os.MkdirTemp("", "sf2-to-opxy-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create workspace"})
		return "", "", nil, false
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	inputPath := filepath.Join(tmpDir, "input.sf2")
	out, err := os.Create(inputPath)
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return "", "", nil, false
	}
	_, err = io.Copy(out, file)
	_ = out.Close()
	if err != nil {
		cleanup()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return "", "", nil, false
	}
	return inputPath, header.Filename, cleanup, true
}

func queryConfig(c *gin.Context, outDir string) converter.Config {
	cfg := converter.DefaultConfig()
	cfg.OutDir = outDir
	if v, err := strconv.Atoi(c.DefaultQuery("sample_rate", "22050")); err == nil && v > 0 {
		cfg.SampleRate = v
	}
	if c.DefaultQuery("resample_method", "linear") == "sinc" {
		cfg.ResampleMethod = dsp.MethodSinc
	}
	switch c.Query("mode") {
	case converter.ModeDrum, converter.ModeInstrument:
		cfg.ForceMode = c.Query("mode")
	}
	return cfg
}

// handleConvert godoc
// @Summary Convert a SoundFont bank
// @Description Upload an .sf2 file and receive a zip of OP-XY preset bundles
// @Tags convert
// @Accept multipart/form-data
// @Produce application/zip
// @Param file formData file true "SoundFont file to convert"
// @Param sample_rate query int false "Output sample rate (default 22050)"
// @Param resample_method query string false "Resampler (linear|sinc)"
// @Param mode query string false "Force conversion mode (drum|instrument)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert [post]
func handleConvert(c *gin.Context) {
	inputPath, origName, cleanup, ok := saveUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	outDir := filepath.Join(filepath.Dir(inputPath), "out")
	conv := converter.New(queryConfig(c, outDir))
	if _, err := conv.ConvertFile(inputPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	archive, err := zipDir(outDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	zipName := strings.TrimSuffix(origName, filepath.Ext(origName)) + ".zip"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", zipName))
	c.Data(http.StatusOK, "application/zip", archive)
}

// handleInspect godoc
// @Summary Inspect a SoundFont bank
// @Description Upload an .sf2 file and receive its preset listing and parse diagnostics
// @Tags inspect
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	inputPath, _, cleanup, ok := saveUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	bank, err := sf2.ParseFile(inputPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	presets, parseLog := bank.Resolve(sf2.DefaultDrumHeuristic())

	list := make([]gin.H, 0, len(presets))
	for i := range presets {
		p := &presets[i]
		list = append(list, gin.H{
			"name":    p.Name,
			"bank":    p.Bank,
			"program": p.Program,
			"is_drum": p.IsDrum,
			"zones":   len(p.Zones),
		})
	}
	c.JSON(http.StatusOK, gin.H{"presets": list, "parse": parseLog})
}

func zipDir(root string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
