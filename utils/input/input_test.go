package input_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const straight = `
name: straight
tile_size: 105
rows: 1
columns: 2
tiles:
  - row: 0
    col: 0
    spawns:
      - position: {x: 0, y: 61}
        angle: 0
        speed: 1
        probability: 1
despawns:
  - start: {x: 210, y: 53}
    end: {x: 210, y: 70}
`

func TestParseStraight(t *testing.T) {
	m, err := input.Parse([]byte(straight))
	require.NoError(t, err)
	assert.Equal(t, "straight", m.Name)
	assert.Equal(t, int32(2), m.Columns)
	require.Len(t, m.Tiles, 1)
	assert.Len(t, m.Tiles[0].Spawns, 1)
	// 缺省的列表为空而不是错误
	assert.Empty(t, m.Tiles[0].Turns)
	assert.Empty(t, m.TrafficLights)
	assert.Len(t, m.Despawns, 1)
}

func TestParseJSON(t *testing.T) {
	m, err := input.Parse([]byte(`{"tile_size": 10, "rows": 2, "columns": 2, "tiles": [{"row": 1, "col": 1}]}`))
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.Tiles[0].Row)
}

func TestParseFailures(t *testing.T) {
	// 类型错误
	_, err := input.Parse([]byte("tile_size: wide\nrows: 1\ncolumns: 1\n"))
	assert.Error(t, err)
	// 未知字段
	_, err = input.Parse([]byte("tile_size: 1\nrows: 1\ncolumns: 1\nlanes: []\n"))
	assert.Error(t, err)
	// 网格越界
	_, err = input.Parse([]byte("tile_size: 1\nrows: 1\ncolumns: 1\ntiles: [{row: 1, col: 0}]\n"))
	assert.True(t, errors.Is(err, input.ErrInvalidDescription))
	// 重复瓦片
	_, err = input.Parse([]byte("tile_size: 1\nrows: 1\ncolumns: 1\ntiles: [{row: 0, col: 0}, {row: 0, col: 0}]\n"))
	assert.True(t, errors.Is(err, input.ErrInvalidDescription))
	// 缺少尺寸
	_, err = input.Parse([]byte("rows: 1\ncolumns: 1\n"))
	assert.True(t, errors.Is(err, input.ErrInvalidDescription))
}

func TestInitFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "straight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(straight), 0o644))
	res, err := input.Init(context.Background(), config.Input{Map: config.InputPath{File: path}})
	require.NoError(t, err)
	assert.Equal(t, 105.0, res.Map.TileSize)

	_, err = input.Init(context.Background(), config.Input{})
	assert.True(t, errors.Is(err, input.ErrNoInput))

	_, err = input.Init(context.Background(), config.Input{Map: config.InputPath{File: filepath.Join(t.TempDir(), "missing.yaml")}})
	assert.Error(t, err)
}

func TestLoadMongoUnreachable(t *testing.T) {
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	p := config.InputPath{DB: "tilesim", Col: "maps", Name: "straight"}
	coll := mongoutil.GetMongoColl(client, p)
	assert.Equal(t, "tilesim", coll.Database().Name())
	assert.Equal(t, "maps", coll.Name())

	_, err = input.LoadMongo(context.Background(), client, p)
	require.Error(t, err)
	assert.False(t, errors.Is(err, mongo.ErrNoDocuments))
	assert.Contains(t, err.Error(), "tilesim.maps")
}
