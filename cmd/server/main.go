// cmd/server/main.go
package main

import (
	"log"

	"github.com/Corphon/AgenticVideoStudio/internal/app"
	"github.com/Corphon/AgenticVideoStudio/internal/di"
)

func main() {
	log.Println("🚀 Starting Agentic Video Studio...")

	if err := app.Initialize(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}

	cfg := app.GetApp().GetConfig()
	log.Printf("✅ Configuration loaded, port: %s", cfg.Port)
	log.Printf("✅ Services ready: %v", di.GetContainer().GetNames())
	log.Printf("⏱️ Step timing: %v per step, %v between steps", cfg.StepRunDelay, cfg.StepGapDelay)
	log.Printf("🌐 Listening on http://localhost:%s", cfg.Port)

	if err := app.Run(); err != nil {
		log.Fatalf("❌ Server stopped with error: %v", err)
	}

	log.Println("✅ Server shut down gracefully")
}
