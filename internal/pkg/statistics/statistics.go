package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ManuelReschke/ResumeFox/app/models"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/cache"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/database"
)

const (
	CacheKeyOperationsTotal = "statistics:operations:total"
	CacheKeyOperationsDaily = "statistics:operations:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers           = "statistics:users:total"
	CacheExpiration         = 30 * time.Minute
)

// StatisticsData holds the aggregated platform numbers shown on the admin panel
type StatisticsData struct {
	TodayOperations int
	TotalOperations int
	TotalUsers      int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached statistics are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached statistics when they are stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded to refresh
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalOperations int64
	if err := db.Model(&models.UsageEvent{}).Count(&totalOperations).Error; err != nil {
		log.Printf("Error counting total operations: %v", err)
		return err
	}

	var todayOperations int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.UsageEvent{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayOperations).Error; err != nil {
		log.Printf("Error counting today's operations: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyOperationsTotal, strconv.FormatInt(totalOperations, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total operations: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyOperationsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayOperations, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's operations: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	return nil
}

// GetTotalOperations returns the total number of admitted operations from cache or database
func GetTotalOperations() int {
	val, err := cache.Get(CacheKeyOperationsTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.UsageEvent{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total operations: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyOperationsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total operations: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayOperations returns the number of operations admitted today from cache or database
func GetTodayOperations() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyOperationsDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		var count int64
		db := database.GetDB()
		if err := db.Model(&models.UsageEvent{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
			log.Printf("Error counting today's operations: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's operations: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of registered users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatistics returns all statistics in one struct
func GetStatistics() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayOperations: GetTodayOperations(),
		TotalOperations: GetTotalOperations(),
		TotalUsers:      GetTotalUsers(),
	}
}
