package services

// Services holds all service instances
type Services struct {
	Health    *HealthService
	Ingestion *IngestionService
	Partition *PartitionService
	Tracker   *JobTracker
	Events    *EventHub
}

// Close gracefully shuts down all services
func (s *Services) Close() {
	if s.Tracker != nil {
		s.Tracker.Stop()
	}
}
