package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	anomalyKey = "webhook:anomalies"
	anomalyCap = 1000
)

// Anomaly trace un webhook qu'on a acquitté sans pouvoir le traiter
// (commande introuvable, état incohérent, échec de persistance). La
// passerelle reçoit quand même un 200 ; la liste sert à la visibilité
// opérateur et au rejeu manuel.
type Anomaly struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

type AnomalyLog struct {
	rdb *redis.Client
}

func NewAnomalyLog(rdb *redis.Client) *AnomalyLog {
	return &AnomalyLog{rdb: rdb}
}

func (a *AnomalyLog) Record(ctx context.Context, kind, detail string) {
	entry := Anomaly{Kind: kind, Detail: detail, RecordedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	pipe := a.rdb.Pipeline()
	pipe.LPush(ctx, anomalyKey, data)
	pipe.LTrim(ctx, anomalyKey, 0, anomalyCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️ Impossible d'enregistrer l'anomalie webhook: %v", err)
	}
}

func (a *AnomalyLog) Recent(ctx context.Context, n int64) ([]Anomaly, error) {
	raw, err := a.rdb.LRange(ctx, anomalyKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	anomalies := make([]Anomaly, 0, len(raw))
	for _, item := range raw {
		var entry Anomaly
		if err := json.Unmarshal([]byte(item), &entry); err == nil {
			anomalies = append(anomalies, entry)
		}
	}
	return anomalies, nil
}
