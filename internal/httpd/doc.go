// Package httpd は静的ページを返す最小のHTTPサーバーを提供する。
//
// net/httpは使わず、rawなTCPリスナーの上でリクエストラインだけを解釈する。
// 受け付けた接続は1件ずつジョブとしてワーカープールに渡されるため、
// 同時に処理される接続数はプールのワーカー数で頭打ちになる。
//
// # ルーティング
//
// - GET /: 埋め込みのhelloページを返す
// - GET /sleep: 設定された時間だけ眠ってからhelloページを返す（遅い処理の再現用）
// - その他: 404ページを返す
//
// # 使用例
//
//	cfg := httpd.DefaultConfig()
//	cfg.Addr = ":7878"
//	cfg.Workers = 8
//
//	srv := httpd.New(cfg)
//	if err := srv.Start(ctx); err != nil {
//	    logger.Error("httpd", "server error: %v", err)
//	}
//
// ctxのキャンセルで受け付けを止め、処理中・待機中の接続を全て
// 捌き切ってからStartが戻る。
package httpd
