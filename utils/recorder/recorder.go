// 运行记录：将行程、碰撞与运行汇总写入SQLite或PostgreSQL
package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/tilesim/entity"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	batchSize = 1000
	memoryDSN = "file::memory:?cache=shared"
)

var ErrClosed = errors.New("recorder closed")

// Run 一次仿真运行的汇总
type Run struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	MapName      string
	StartedAt    time.Time
	EndedAt      *time.Time
	Steps        int32
	Spawned      int32
	Despawned    int32
	InFlight     int32
	Collisions   int32
	ConfigErrors int32
}

// Trip 一辆车的行程
type Trip struct {
	ID         uint      `gorm:"primaryKey"`
	RunID      uuid.UUID `gorm:"type:uuid;index"`
	VehicleID  int32
	Class      string
	SpawnID    int32
	SpawnTime  float64
	EndTime    float64
	Distance   float64 // 米
	MaxSpeed   float64 // 米/秒
	Collisions int32
}

// Collision 一次碰撞
type Collision struct {
	ID     uint      `gorm:"primaryKey"`
	RunID  uuid.UUID `gorm:"type:uuid;index"`
	Time   float64
	Step   int32
	First  int32
	Second int32
	X      float64
	Y      float64
	Flags  datatypes.JSONType[map[string]bool]
}

// Recorder 运行记录器
// 功能：缓存行程与碰撞，每flush_interval步批量写库，结束时写入运行汇总
// 说明：仿真单线程调用，不加锁
type Recorder struct {
	db            *gorm.DB
	run           Run
	flushInterval int32

	trips      []Trip
	collisions []Collision
	closed     bool
}

// Open 按配置连接数据库
// 功能：sqlite下DSN为文件路径（为空则使用共享内存数据库），postgres下为连接串
// 参数：c-记录器配置
// 返回：数据库连接
func Open(c config.Recorder) (*gorm.DB, error) {
	gc := &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
	var (
		db  *gorm.DB
		err error
	)
	switch c.Driver {
	case "sqlite":
		dsn := c.DSN
		if dsn == "" {
			dsn = memoryDSN
		}
		db, err = gorm.Open(sqlite.Open(dsn), gc)
	case "postgres":
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  c.DSN,
			PreferSimpleProtocol: true,
		}), gc)
	default:
		return nil, fmt.Errorf("unknown recorder driver %q", c.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", c.Driver, err)
	}
	if err := db.AutoMigrate(&Run{}, &Trip{}, &Collision{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", c.Driver, err)
	}
	return db, nil
}

// New 创建运行记录器并写入运行记录
// 参数：c-记录器配置，mapName-路网名称
// 返回：记录器
func New(c config.Recorder, mapName string) (*Recorder, error) {
	db, err := Open(c)
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		db: db,
		run: Run{
			ID:        uuid.New(),
			MapName:   mapName,
			StartedAt: time.Now(),
		},
		flushInterval: max(c.FlushInterval, 1),
	}
	if err := db.Create(&r.run).Error; err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	log.Infof("recording run %s to %s", r.run.ID, c.Driver)
	return r, nil
}

// RunID 本次运行的ID
func (r *Recorder) RunID() uuid.UUID {
	return r.run.ID
}

func (r *Recorder) RecordTrip(t entity.TripRecord) {
	r.trips = append(r.trips, Trip{
		RunID:      r.run.ID,
		VehicleID:  t.VehicleID,
		Class:      t.Class,
		SpawnID:    t.SpawnID,
		SpawnTime:  t.SpawnTime,
		EndTime:    t.EndTime,
		Distance:   t.Distance,
		MaxSpeed:   t.MaxSpeed,
		Collisions: t.Collisions,
	})
}

func (r *Recorder) RecordCollision(c entity.CollisionRecord) {
	r.collisions = append(r.collisions, Collision{
		RunID:  r.run.ID,
		Time:   c.Time,
		Step:   c.Step,
		First:  c.First,
		Second: c.Second,
		X:      c.Position.X,
		Y:      c.Position.Y,
		Flags:  datatypes.NewJSONType(c.Flags),
	})
}

// Step 每步调用，到达写库间隔时写入缓存的记录
func (r *Recorder) Step(step int32, stats entity.RunStats) error {
	if r.closed {
		return ErrClosed
	}
	r.run.Steps = step
	if step%r.flushInterval != 0 {
		return nil
	}
	return r.flush()
}

// flush 批量写入缓存的行程与碰撞
func (r *Recorder) flush() error {
	if len(r.trips) > 0 {
		if err := r.db.CreateInBatches(r.trips, batchSize).Error; err != nil {
			return fmt.Errorf("failed to write %d trips: %w", len(r.trips), err)
		}
		log.Debugf("wrote %d trips", len(r.trips))
		r.trips = r.trips[:0]
	}
	if len(r.collisions) > 0 {
		if err := r.db.CreateInBatches(r.collisions, batchSize).Error; err != nil {
			return fmt.Errorf("failed to write %d collisions: %w", len(r.collisions), err)
		}
		log.Debugf("wrote %d collisions", len(r.collisions))
		r.collisions = r.collisions[:0]
	}
	return nil
}

// Close 写入剩余记录与运行汇总并关闭数据库连接
func (r *Recorder) Close(stats entity.RunStats) error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.flush(); err != nil {
		return err
	}
	now := time.Now()
	r.run.EndedAt = &now
	r.run.Spawned = stats.Spawned
	r.run.Despawned = stats.Despawned
	r.run.InFlight = stats.InFlight
	r.run.Collisions = stats.Collisions
	r.run.ConfigErrors = stats.ConfigErrors
	if err := r.db.Save(&r.run).Error; err != nil {
		return fmt.Errorf("failed to update run %s: %w", r.run.ID, err)
	}
	log.Infof("run %s closed: %v", r.run.ID, stats)
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
