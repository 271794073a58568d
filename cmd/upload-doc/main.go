package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/docstore"
	infraBQ "github.com/avlasov/pdfrecon/internal/infra/bigquery"
	"github.com/avlasov/pdfrecon/internal/logger"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process env")
	}

	var (
		bucketName string
		objectName string
		filePath   string
		dateStr    string
		register   bool
	)

	flag.StringVar(&bucketName, "bucket", "", "GCS bucket name (required)")
	flag.StringVar(&objectName, "object", "", "GCS object name (optional; defaults to file name)")
	flag.StringVar(&filePath, "file", "", "Path to local PDF file (required)")
	flag.StringVar(&dateStr, "date", "", "Statement date YYYY-MM-DD (optional, recorded with -register)")
	flag.BoolVar(&register, "register", false, "Record the document in BigQuery after upload")
	flag.Parse()

	if bucketName == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-doc -bucket BUCKET_NAME -file /path/to/file.pdf [-object OBJECT_NAME] [-register]")
	}

	if objectName == "" {
		objectName = filepath.Base(filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Str("file", filePath).
		Msg("Uploading file to GCS")

	uri, err := docstore.Upload(ctx, filePath, bucketName, objectName)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	if register {
		info, err := os.Stat(filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to stat uploaded file")
		}

		var documentDate bigquery.NullDate
		if dateStr != "" {
			d, err := civil.ParseDate(dateStr)
			if err != nil {
				log.Fatal().Err(err).Str("date", dateStr).Msg("Error: invalid -date, expected YYYY-MM-DD")
			}
			documentDate = bigquery.NullDate{Date: d, Valid: true}
		}

		repo, err := infraBQ.NewBigQueryDocumentRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create document repository")
		}
		defer repo.Close()

		doc := &bq.DocumentRow{
			DocumentID:   uuid.NewString(),
			FileName:     filepath.Base(filePath),
			GCSURI:       uri,
			ContentType:  "application/pdf",
			SizeBytes:    info.Size(),
			Status:       bq.DocumentStatusUploaded,
			DocumentDate: documentDate,
			UploadedAt:   time.Now(),
		}

		if err := repo.InsertDocument(ctx, doc); err != nil {
			log.Fatal().Err(err).Msg("Failed to record document")
		}

		fmt.Printf("Registered document %s\n", doc.DocumentID)
	}

	fmt.Printf("Uploaded %s to %s\n", filePath, uri)
}
