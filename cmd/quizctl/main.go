package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/config"
	"quizstack/internal/database"
	"quizstack/internal/logger"
	"quizstack/internal/repository"
	"quizstack/internal/security"
	"quizstack/internal/service"
	"quizstack/migrations"
)

func main() {
	// Define subcommands
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportBankCmd := flag.NewFlagSet("export-bank", flag.ExitOnError)

	importInput := importCmd.String("input", "", "Question bank YAML file (required)")

	exportOutput := exportCmd.String("output", "", "Output file path (default: results_YYYYMMDD_HHMMSS.json)")
	exportQuiz := exportCmd.Int64("quiz", 0, "Only export results for this quiz ID")

	bankOutput := exportBankCmd.String("output", "", "Output file path (default: bank_YYYYMMDD_HHMMSS.yaml)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// hash-password needs no database
	if os.Args[1] == "hash-password" {
		handleHashPassword()
		return
	}

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Debug: cfg.IsDebug()})
	defer log.Sync()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(migrations.Source(cfg.MigrationsPath), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	bankService := service.NewBankService(repository.NewQuizRepository(db), repository.NewResultRepository(db), log)

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(bankService, log, *importInput)

	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(bankService, log, *exportOutput, *exportQuiz)

	case "export-bank":
		exportBankCmd.Parse(os.Args[2:])
		handleExportBank(bankService, log, *bankOutput)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleImport(bankService *service.BankService, log *zap.Logger, inputPath string) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", inputPath))
	}

	log.Info("Importing question bank", zap.String("file", inputPath))
	imported, err := bankService.Import(inputPath)
	if err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}

	for _, quiz := range imported {
		fmt.Printf("  %-24s id=%d questions=%d\n", quiz.Slug, quiz.ID, quiz.QuestionCount)
	}
	log.Info("Import complete", zap.Int("quizzes", len(imported)))
}

func handleExport(bankService *service.BankService, log *zap.Logger, outputPath string, quizID int64) {
	outputPath = defaultOutput(outputPath, "results", "json")
	ensureDir(log, outputPath)

	log.Info("Exporting results", zap.String("file", outputPath), zap.Int64("quiz_id", quizID))
	count, err := bankService.ExportResults(outputPath, quizID)
	if err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}
	log.Info("Export complete", zap.Int("results", count))
}

func handleExportBank(bankService *service.BankService, log *zap.Logger, outputPath string) {
	outputPath = defaultOutput(outputPath, "bank", "yaml")
	ensureDir(log, outputPath)

	file, err := os.Create(outputPath)
	if err != nil {
		log.Fatal("Failed to create output file", zap.Error(err))
	}
	defer file.Close()

	if err := bankService.ExportBankToWriter(file); err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}
	log.Info("Question bank exported", zap.String("file", outputPath))
}

func handleHashPassword() {
	fmt.Print("Admin password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil && password == "" {
		fmt.Fprintf(os.Stderr, "Failed to read password: %v\n", err)
		os.Exit(1)
	}

	hash, err := security.HashPassword(strings.TrimRight(password, "\r\n"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
}

// defaultOutput generates a timestamped filename when none was given
func defaultOutput(outputPath, prefix, ext string) string {
	if outputPath != "" {
		return outputPath
	}
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, ext)
}

func ensureDir(log *zap.Logger, outputPath string) {
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create output directory", zap.Error(err))
		}
	}
}

func printUsage() {
	fmt.Println("QuizStack administration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  quizctl import -input <file>          Load a YAML question bank")
	fmt.Println("  quizctl export [-output <file>] [-quiz <id>]")
	fmt.Println("                                        Export recorded results to JSON")
	fmt.Println("  quizctl export-bank [-output <file>]  Export stored quizzes to YAML")
	fmt.Println("  quizctl hash-password                 Print a bcrypt hash for ADMIN_PASSWORD_HASH")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./quizstack.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
