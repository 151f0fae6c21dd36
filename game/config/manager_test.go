package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/memory-match-game/game/engine"
)

func createValidConfig(name string, gridSize int) *engine.GameConfig {
	config := engine.DefaultConfig()
	config.Name = name
	config.Description = "Test configuration"
	config.GridSize = gridSize
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "medium", createValidConfig("medium", 4))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "medium" {
			t.Errorf("Expected medium as default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("falls back to first config", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "hard", createValidConfig("hard", 6))
		writeConfigFile(t, dir, "easy", createValidConfig("easy", 2))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "easy" {
			t.Errorf("Expected smallest grid as default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("empty directory uses built-in default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.GridSize != engine.DefaultGridSize {
			t.Errorf("Expected built-in 4x4 default, got %+v", def)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "medium", createValidConfig("medium", 4))
	easy := createValidConfig("easy", 2)
	easy.MismatchDelayMS = 500
	writeConfigFile(t, dir, "easy", easy)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.GridSize != 2 || config.MismatchDelayMS != 500 {
			t.Errorf("Unexpected config %+v", config)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("easy.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "easy" {
			t.Errorf("Expected easy, got %s", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("easy")
		config2, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		if _, err := manager.LoadConfig("non-existent"); err != ErrConfigNotFound {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		for _, name := range []string{"../medium", "a/b", "..", ""} {
			if _, err := manager.LoadConfig(name); err != ErrConfigNotFound {
				t.Errorf("LoadConfig(%q): expected ErrConfigNotFound, got %v", name, err)
			}
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		odd := createValidConfig("odd", 3)
		writeConfigFile(t, dir, "odd", odd)

		_, err := manager.LoadConfig("odd")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed json", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644)
		if _, err := manager.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "hard", createValidConfig("hard", 6))
	writeConfigFile(t, dir, "medium", createValidConfig("medium", 4))
	writeConfigFile(t, dir, "easy", createValidConfig("easy", 2))
	writeConfigFile(t, dir, "invalid", createValidConfig("invalid", 5))
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	want := []string{"easy", "medium", "hard"}
	if len(configs) != len(want) {
		t.Fatalf("Expected %d configs, got %d", len(want), len(configs))
	}
	for i, id := range want {
		if configs[i].ConfigID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, configs[i].ConfigID)
		}
	}
	if configs[2].Pairs != 18 {
		t.Errorf("Expected 18 pairs for hard, got %d", configs[2].Pairs)
	}
	if configs[0].Filename != "easy.json" {
		t.Errorf("Expected easy.json, got %s", configs[0].Filename)
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "medium", createValidConfig("medium", 4))
	writeConfigFile(t, dir, "hard", createValidConfig("hard", 6))

	manager, _ := NewManager(dir)
	if err := manager.SetDefault("hard"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "hard" {
		t.Errorf("Expected hard, got %s", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); err == nil {
		t.Error("Expected error for missing config")
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir)

	custom := createValidConfig("custom", 6)
	custom.MismatchDelayMS = 1500
	if err := manager.SaveConfig("custom", custom); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "custom.json")); err != nil {
		t.Errorf("Expected custom.json on disk: %v", err)
	}

	loaded, err := manager.LoadConfig("custom")
	if err != nil {
		t.Fatalf("LoadConfig after save failed: %v", err)
	}
	if loaded.MismatchDelayMS != 1500 {
		t.Errorf("Expected 1500ms delay, got %d", loaded.MismatchDelayMS)
	}

	if err := manager.SaveConfig("bad", createValidConfig("bad", 3)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", custom); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for bad name, got %v", err)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "medium", createValidConfig("medium", 4))
	manager, _ := NewManager(dir)

	first, _ := manager.LoadConfig("medium")
	changed := createValidConfig("medium", 6)
	writeConfigFile(t, dir, "medium", changed)

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	second, _ := manager.LoadConfig("medium")
	if first == second || second.GridSize != 6 {
		t.Errorf("Expected reloaded config with grid 6, got %d", second.GridSize)
	}
	if manager.GetDefault().GridSize != 6 {
		t.Errorf("Expected default to be refreshed")
	}
}

func TestManager_ConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "medium", createValidConfig("medium", 4))
	writeConfigFile(t, dir, "easy", createValidConfig("easy", 2))
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "easy"
			if i%2 == 0 {
				name = "medium"
			}
			if _, err := manager.LoadConfig(name); err != nil {
				t.Errorf("Concurrent load failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestRepositoryConfigs(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to open repository configs: %v", err)
	}
	for _, name := range []string{"easy", "medium", "hard"} {
		if _, err := manager.LoadConfig(name); err != nil {
			t.Errorf("configs/%s.json is invalid: %v", name, err)
		}
	}
}
