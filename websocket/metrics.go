// Package websocket - websocket/metrics.go
// file: websocket/metrics.go

package websocket

import (
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"go-meet-control/logger"
)

// Namespace for all meet metrics
var metricsNamespace = "MeetControl"

// Reuse a single CloudWatch client for all metrics calls; nil disables publishing.
var (
	cwClient cloudwatchiface.CloudWatchAPI
	cwMu     sync.RWMutex
)

// InitCloudWatch creates the CloudWatch client. Publishing stays off when
// enabled is false.
func InitCloudWatch(enabled bool, region, namespace string) error {
	if !enabled {
		SetCloudWatchClient(nil)
		return nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return err
	}
	if namespace != "" {
		metricsNamespace = namespace
	}
	SetCloudWatchClient(cloudwatch.New(sess))
	logger.Info.Printf("[InitCloudWatch] Publishing metrics to namespace=%s region=%s", metricsNamespace, region)
	return nil
}

// SetCloudWatchClient swaps the client, mainly for tests.
func SetCloudWatchClient(client cloudwatchiface.CloudWatchAPI) {
	cwMu.Lock()
	defer cwMu.Unlock()
	cwClient = client
}

// PublishObserverConnections pushes current observer connection count
func PublishObserverConnections(count int, competitionID string) {
	putMetric("ObserverConnections", float64(count), cloudwatch.StandardUnitCount, competitionID)
}

// PublishTimerExpired records an attempt clock reaching zero
func PublishTimerExpired(competitionID string) {
	putMetric("TimerExpired", 1, cloudwatch.StandardUnitCount, competitionID)
}

// -----------------------------------------------------------
// internal helper function to package up CloudWatch calls
// -----------------------------------------------------------
func putMetric(metricName string, value float64, unit string, competitionID string) {
	cwMu.RLock()
	client := cwClient
	cwMu.RUnlock()
	if client == nil {
		return
	}

	_, err := client.PutMetricData(&cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricsNamespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Dimensions: []*cloudwatch.Dimension{
					{
						Name:  aws.String("CompetitionID"),
						Value: aws.String(competitionID),
					},
				},
				Timestamp: aws.Time(time.Now()),
				Value:     aws.Float64(value),
				Unit:      aws.String(unit),
			},
		},
	})

	if err != nil {
		logger.Error.Printf("[putMetric] CloudWatch metric failed (%s): %v", metricName, err)
	}
}
