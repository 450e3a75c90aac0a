package config

import "fmt"

// Validate checks the recognized-options constraints spec.md sections
// 4.4 and 4.6 place on persistence/backup/visualization config:
// compression_level in 0..=9, a non-negative backup count, and a
// recognized export format.
func (c *HostConfig) Validate() error {
	if c.Persistence.CompressionLevel < 0 || c.Persistence.CompressionLevel > 9 {
		return fmt.Errorf("config: persistence.compression_level must be in 0..=9, got %d", c.Persistence.CompressionLevel)
	}
	if c.Persistence.Backup.MaxBackups < 0 {
		return fmt.Errorf("config: persistence.backup_config.max_backups must be >= 0, got %d", c.Persistence.Backup.MaxBackups)
	}
	switch c.Visualization.ExportFormat {
	case "", "Dot", "Mermaid", "PlantUml", "Json", "Svg", "Png":
	default:
		return fmt.Errorf("config: visualization.export_format %q is not one of Dot, Mermaid, PlantUml, Json, Svg, Png", c.Visualization.ExportFormat)
	}
	return nil
}
